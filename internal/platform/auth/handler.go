package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"LMS-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(public gin.IRoutes, authed gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	public.POST("/login", h.Login)
	public.POST("/signup", h.Signup)
	authed.GET("/profile", h.Profile)
}

// GET /profile
func (h *Handler) Profile(c *gin.Context) {
	userID, _ := Identity(c)
	res, err := h.svc.Profile(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	token, user, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status := apperr.ToHTTPStatus(err)
		switch status {
		case http.StatusForbidden:
			c.JSON(status, gin.H{"error": "account is inactive"})
		case http.StatusBadRequest:
			// どのフィールドが違ったかは返さない
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		default:
			c.JSON(status, gin.H{"error": "login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"token": token,
	})
}

type SignupRequest struct {
	Email     string  `json:"email" binding:"required"`
	Password  string  `json:"password" binding:"required"`
	FirstName string  `json:"firstName" binding:"required"`
	LastName  string  `json:"lastName" binding:"required"`
	Role      *string `json:"role,omitempty"` // 未指定なら member
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}

	in := SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Role != nil {
		in.Role = *req.Role
	}

	token, user, err := h.svc.Signup(c.Request.Context(), in)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  user,
		"token": token,
	})
}
