package membership

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LMS-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

// 会員管理は admin 専用
func RegisterRoutes(admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	admin.GET("/members", h.ListMembers)
	admin.GET("/members/stats", h.MemberStats)
	admin.PUT("/members/:id", h.UpdateMember)
}

func (h *Handler) MemberStats(c *gin.Context) {
	res, err := h.svc.MemberStats(c.Request.Context())
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListMembers(c *gin.Context) {
	res, err := h.svc.ListMembers(c.Request.Context())
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateMember(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.ErrInvalid("id must be a positive integer")))
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.ErrInvalid("isActive field is required")))
		return
	}

	res, err := h.svc.SetMemberActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
