package lending

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"LMS-backend/internal/platform/apperr"
	"LMS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(authed gin.IRoutes, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	authed.POST("/borrow/:book_id", h.Borrow)
	authed.POST("/return/:transaction_id", h.Return)
	authed.GET("/transactions", h.ListTransactions)

	admin.GET("/transactions/overdue", h.ListOverdue)
	admin.GET("/transactions/stats", h.Stats)
}

// ---------- handlers ----------

// POST /borrow/:book_id
// IDの正当性チェックはサービス側に寄せる（非数値は0になり invalid で弾かれる）
func (h *Handler) Borrow(c *gin.Context) {
	bookID, _ := strconv.ParseInt(c.Param("book_id"), 10, 64)

	// ボディは省略可（期日未指定の借り出し）
	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = BorrowRequest{}
	}

	userID, _ := auth.Identity(c)
	res, err := h.svc.Borrow(c.Request.Context(), userID, bookID, req.DueDate)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}

	c.Header("Location", "/api/transactions/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

// POST /return/:transaction_id
func (h *Handler) Return(c *gin.Context) {
	txnID, _ := strconv.ParseInt(c.Param("transaction_id"), 10, 64)

	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = ReturnRequest{}
	}

	userID, role := auth.Identity(c)
	res, err := h.svc.Return(c.Request.Context(), userID, role, txnID, req.ReturnDate)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, role := auth.Identity(c)
	res, err := h.svc.List(c.Request.Context(), userID, role)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /transactions/overdue?asOf=RFC3339
func (h *Handler) ListOverdue(c *gin.Context) {
	res, err := h.svc.ListOverdue(c.Request.Context(), asOfParam(c))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /transactions/stats?asOf=RFC3339
func (h *Handler) Stats(c *gin.Context) {
	res, err := h.svc.Stats(c.Request.Context(), asOfParam(c))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.Body(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func asOfParam(c *gin.Context) time.Time {
	if v := c.Query("asOf"); v != "" {
		if t, err := parseDate(v); err == nil {
			return t
		}
	}
	return time.Now()
}
