package lending

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"LMS-backend/internal/catalog"
	"LMS-backend/internal/platform/apperr"
	"LMS-backend/internal/platform/db"
)

type Store struct {
	db     *sql.DB
	driver string
}

func NewStore(conn *sql.DB, driver string) *Store {
	return &Store{db: conn, driver: driver}
}

const txnColumns = `id, txn_ulid, book_id, user_id, issue_date, due_date, return_date, status, fine, created_at, updated_at`

func scanTxn(row interface{ Scan(...any) error }) (*Transaction, error) {
	var t Transaction
	var issue, due, createdAt, updatedAt string
	var ret sql.NullString
	err := row.Scan(&t.ID, &t.ULID, &t.BookID, &t.UserID, &issue, &due, &ret, &t.Status, &t.Fine, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if t.IssueDate, err = db.ParseTime(issue); err != nil {
		return nil, err
	}
	if t.DueDate, err = db.ParseTime(due); err != nil {
		return nil, err
	}
	if ret.Valid {
		r, err := db.ParseTime(ret.String)
		if err != nil {
			return nil, err
		}
		t.ReturnDate = &r
	}
	if t.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) forUpdate() string {
	// sqlite はコネクション1本で直列化するのでロック句は不要（構文エラーにもなる）
	if s.driver == db.DriverMySQL {
		return " FOR UPDATE"
	}
	return ""
}

// ExecBorrow は貸出登録を1トランザクションで行う。
// 在庫確認・二重貸出確認・在庫減算・貸出行の挿入が全て成功したときだけコミットする。
func (s *Store) ExecBorrow(ctx context.Context, t *Transaction) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// 1. 本の行をロックして取得
		b, err := catalog.GetBookTx(ctx, tx, t.BookID, true, s.driver)
		if err != nil {
			return err
		}

		// 2. 在庫確認
		if b.AvailableCopies <= 0 {
			return apperr.ErrUnavailable("no available copies")
		}

		// 3. 同一利用者の同一本に active な貸出は1件まで
		const dupQ = `SELECT COUNT(*) FROM transactions WHERE book_id = ? AND user_id = ? AND status = ?`
		var n int
		if err := tx.QueryRowContext(ctx, dupQ, t.BookID, t.UserID, StatusActive).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return apperr.ErrConflict("user already has this book on loan")
		}

		// 4. 在庫減算（範囲チェックと同時に適用）
		now := db.FmtTime(t.IssueDate)
		if err := catalog.AdjustAvailabilityTx(ctx, tx, t.BookID, -1, now); err != nil {
			return err
		}

		// 5. 貸出行の挿入（return_date は未返却なので NULL）
		const q = `
INSERT INTO transactions (txn_ulid, book_id, user_id, issue_date, due_date, return_date, status, fine, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`
		res, err := tx.ExecContext(ctx, q,
			t.ULID, t.BookID, t.UserID,
			db.FmtTime(t.IssueDate), db.FmtTime(t.DueDate), db.FmtTimePtr(t.ReturnDate),
			StatusActive, now, now,
		)
		if err != nil {
			return err
		}
		id, _ := res.LastInsertId()
		t.ID = id
		t.Status = StatusActive
		return nil
	})
}

// ExecReturn は返却登録を1トランザクションで行う。
// 二重返却の拒否と権限確認はロック済みの行に対して行う。fine は確定後変更不可。
func (s *Store) ExecReturn(ctx context.Context, txnID int64, actorID int64, isAdmin bool, returnDate time.Time, finePerDay float64) (*Transaction, error) {
	var out *Transaction
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// 1. 貸出行をロックして取得
		q := `SELECT ` + txnColumns + ` FROM transactions WHERE id = ?` + s.forUpdate()
		t, err := scanTxn(tx.QueryRowContext(ctx, q, txnID))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound("transaction not found")
		}
		if err != nil {
			return err
		}

		// 2. 状態確認（returned は終端状態）
		if t.Status != StatusActive {
			return apperr.ErrInvalidState("transaction already returned")
		}

		// 3. 本人か admin だけが返却できる
		if !isAdmin && t.UserID != actorID {
			return apperr.ErrForbidden("you can only return your own books")
		}

		// 4. 返却日の整合性。貸出日より前は黙って丸めず拒否する
		if returnDate.Before(t.IssueDate) {
			return apperr.ErrInvalid("returnDate must not be before issueDate")
		}

		// 5. 延滞料金の確定
		fine := float64(overdueDays(t.DueDate, returnDate)) * finePerDay

		now := db.FmtTime(returnDate)
		const upQ = `
UPDATE transactions
SET return_date = ?, status = ?, fine = ?, updated_at = ?
WHERE id = ? AND status = ?`
		res, err := tx.ExecContext(ctx, upQ, now, StatusReturned, fine, now, t.ID, StatusActive)
		if err != nil {
			return err
		}
		aff, _ := res.RowsAffected()
		if aff != 1 {
			return apperr.ErrInvalidState("transaction already returned")
		}

		// 6. 在庫を戻す
		if err := catalog.AdjustAvailabilityTx(ctx, tx, t.BookID, 1, now); err != nil {
			return err
		}

		ret := returnDate.UTC().Truncate(time.Second)
		t.ReturnDate = &ret
		t.Status = StatusReturned
		t.Fine = fine
		t.UpdatedAt = ret
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// overdueDays は延滞日数（丸1日単位、切り捨て）。期限内なら0。
// 日付はUTCで比較する。タイムゾーンの異なるクライアント間でも結果が一致すること。
func overdueDays(due, ret time.Time) int {
	d := ret.UTC().Sub(due.UTC())
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

const txnListSelect = `
SELECT t.id, t.txn_ulid, t.book_id, t.user_id, t.issue_date, t.due_date, t.return_date, t.status, t.fine, t.created_at, t.updated_at,
       b.title, b.author, b.isbn,
       u.first_name, u.last_name, u.email
FROM transactions t
JOIN books b ON b.id = t.book_id
JOIN users u ON u.id = t.user_id`

func (s *Store) queryTxnRows(ctx context.Context, q string, args ...any) ([]txnRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []txnRow
	for rows.Next() {
		var r txnRow
		var issue, due, createdAt, updatedAt string
		var ret sql.NullString
		if err := rows.Scan(
			&r.ID, &r.ULID, &r.BookID, &r.UserID, &issue, &due, &ret, &r.Status, &r.Fine, &createdAt, &updatedAt,
			&r.BookTitle, &r.BookAuthor, &r.BookISBN,
			&r.FirstName, &r.LastName, &r.Email,
		); err != nil {
			return nil, err
		}
		if r.IssueDate, err = db.ParseTime(issue); err != nil {
			return nil, err
		}
		if r.DueDate, err = db.ParseTime(due); err != nil {
			return nil, err
		}
		if ret.Valid {
			t, err := db.ParseTime(ret.String)
			if err != nil {
				return nil, err
			}
			r.ReturnDate = &t
		}
		if r.CreatedAt, err = db.ParseTime(createdAt); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListAll(ctx context.Context) ([]txnRow, error) {
	return s.queryTxnRows(ctx, txnListSelect+` ORDER BY t.created_at DESC, t.id DESC`)
}

func (s *Store) ListForUser(ctx context.Context, userID int64) ([]txnRow, error) {
	return s.queryTxnRows(ctx, txnListSelect+` WHERE t.user_id = ? ORDER BY t.created_at DESC, t.id DESC`, userID)
}

// Stats は asOf 時点の貸出集計を返す。2クエリにまたがるので
// 読み取り専用Txで囲んで同一スナップショットから数える。
func (s *Store) Stats(ctx context.Context, asOf time.Time) (*TransactionStatsResponse, error) {
	var out TransactionStatsResponse
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		const sumQ = `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(fine), 0)
FROM transactions`
		if err := tx.QueryRowContext(ctx, sumQ, StatusActive).
			Scan(&out.TotalTransactions, &out.ActiveLoans, &out.TotalFines); err != nil {
			return err
		}
		out.ReturnedLoans = out.TotalTransactions - out.ActiveLoans

		const overdueQ = `SELECT COUNT(*) FROM transactions WHERE status = ? AND due_date < ?`
		return tx.QueryRowContext(ctx, overdueQ, StatusActive, db.FmtTime(asOf)).
			Scan(&out.OverdueLoans)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOverdue は asOf 時点で期限切れの active な貸出を返す。
// 日時は固定長のUTC文字列なので文字列比較で時刻比較になる。
func (s *Store) ListOverdue(ctx context.Context, asOf time.Time) ([]txnRow, error) {
	q := txnListSelect + ` WHERE t.status = ? AND t.due_date < ? ORDER BY t.due_date ASC, t.id ASC`
	return s.queryTxnRows(ctx, q, StatusActive, db.FmtTime(asOf))
}
