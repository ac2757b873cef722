package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BorrowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lms_borrows_total",
		Help: "Number of successful borrow operations.",
	})

	// reason: not_found | unavailable | conflict | invalid | internal
	BorrowRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_borrow_rejected_total",
		Help: "Number of rejected borrow operations by reason.",
	}, []string{"reason"})

	ReturnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lms_returns_total",
		Help: "Number of successful return operations.",
	})

	// 通貨単位の合計（枚数ではない）
	FinesAssessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lms_fines_assessed_total",
		Help: "Total overdue fines assessed, in currency units.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
