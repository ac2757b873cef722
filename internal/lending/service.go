package lending

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"LMS-backend/internal/platform/apperr"
	"LMS-backend/internal/platform/db"
	"LMS-backend/internal/platform/metrics"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Service本体 =====

type Service struct {
	store          *Store
	clock          Clock
	id             IDGen
	finePerDay     float64
	loanPeriodDays int
}

func NewService(conn *sql.DB, driver string, cfg db.LendingConfig) *Service {
	return &Service{
		store:          NewStore(conn, driver),
		clock:          realClock{},
		id:             ulidGen{},
		finePerDay:     cfg.FinePerDay,
		loanPeriodDays: cfg.LoanPeriodDays,
	}
}

// Borrow は貸出1件を登録する。
// 期日は未指定・不正・過去日のいずれもデフォルト（貸出日+貸出期間）に倒す。
func (s *Service) Borrow(ctx context.Context, userID, bookID int64, dueDateRaw *string) (*TransactionResponse, error) {
	if bookID <= 0 {
		metrics.BorrowRejectedTotal.WithLabelValues("invalid").Inc()
		return nil, apperr.ErrInvalid("book id must be > 0")
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	due := now.AddDate(0, 0, s.loanPeriodDays)
	if dueDateRaw != nil && *dueDateRaw != "" {
		parsed, err := parseDate(*dueDateRaw)
		if err != nil || parsed.Before(now) {
			log.Printf("[WARN] invalid dueDate %q, using default (+%dd)", *dueDateRaw, s.loanPeriodDays)
		} else {
			due = parsed.UTC().Truncate(time.Second)
		}
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		ULID:      idStr,
		BookID:    bookID,
		UserID:    userID,
		IssueDate: now,
		DueDate:   due,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.ExecBorrow(ctx, t); err != nil {
		metrics.BorrowRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}

	metrics.BorrowsTotal.Inc()
	resp := buildTransactionResponse(t)
	return &resp, nil
}

// Return は返却1件を登録し、延滞料金を確定する。
// 返却日は未指定・不正なら現在時刻に倒す。
func (s *Service) Return(ctx context.Context, actorID int64, role string, txnID int64, returnDateRaw *string) (*TransactionResponse, error) {
	if txnID <= 0 {
		return nil, apperr.ErrInvalid("transaction id must be > 0")
	}

	ret := s.clock.Now().UTC().Truncate(time.Second)
	if returnDateRaw != nil && *returnDateRaw != "" {
		parsed, err := parseDate(*returnDateRaw)
		if err != nil {
			log.Printf("[WARN] invalid returnDate %q, using current time", *returnDateRaw)
		} else {
			ret = parsed.UTC().Truncate(time.Second)
		}
	}

	t, err := s.store.ExecReturn(ctx, txnID, actorID, role == "admin", ret, s.finePerDay)
	if err != nil {
		return nil, err
	}

	metrics.ReturnsTotal.Inc()
	if t.Fine > 0 {
		metrics.FinesAssessedTotal.Add(t.Fine)
	}
	resp := buildTransactionResponse(t)
	return &resp, nil
}

// List は自分の貸出履歴を返す。admin は全件。
func (s *Service) List(ctx context.Context, userID int64, role string) ([]TransactionResponse, error) {
	var (
		rows []txnRow
		err  error
	)
	if role == "admin" {
		rows, err = s.store.ListAll(ctx)
	} else {
		rows, err = s.store.ListForUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	out := make([]TransactionResponse, 0, len(rows))
	for i := range rows {
		out = append(out, buildTxnRowResponse(&rows[i]))
	}
	return out, nil
}

// ListOverdue は asOf 時点の延滞一覧（admin用）。
func (s *Service) ListOverdue(ctx context.Context, asOf time.Time) ([]TransactionResponse, error) {
	rows, err := s.store.ListOverdue(ctx, asOf)
	if err != nil {
		return nil, err
	}

	out := make([]TransactionResponse, 0, len(rows))
	for i := range rows {
		resp := buildTxnRowResponse(&rows[i])
		days := overdueDays(rows[i].DueDate, asOf)
		resp.DaysOverdue = &days
		out = append(out, resp)
	}
	return out, nil
}

// Stats は asOf 時点の貸出集計（admin用）。
func (s *Service) Stats(ctx context.Context, asOf time.Time) (*TransactionStatsResponse, error) {
	return s.store.Stats(ctx, asOf)
}

// ---------- helpers ----------

// RFC3339、秒までのローカル表記、日付のみ、の順に試す
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

func rejectReason(err error) string {
	var api *apperr.APIError
	if !errors.As(err, &api) {
		return "internal"
	}
	switch api.Code {
	case apperr.CodeNotFound:
		return "not_found"
	case apperr.CodeUnavailable:
		return "unavailable"
	case apperr.CodeConflict:
		return "conflict"
	case apperr.CodeInvalidArgument:
		return "invalid"
	default:
		return "internal"
	}
}
