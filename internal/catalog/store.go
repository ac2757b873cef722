package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

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

const bookColumns = `id, title, author, isbn, category, published_year, description, total_copies, available_copies, image_url, created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	var b Book
	var desc sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.PublishedYear,
		&desc, &b.TotalCopies, &b.AvailableCopies, &b.ImageURL, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Description = desc.String
	if b.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) List(ctx context.Context) ([]Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE id = ?`
	b, err := scanBook(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound("book not found")
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) Insert(ctx context.Context, b *Book) error {
	const q = `
INSERT INTO books (title, author, isbn, category, published_year, description, total_copies, available_copies, image_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		b.Title, b.Author, b.ISBN, b.Category, b.PublishedYear, b.Description,
		b.TotalCopies, b.AvailableCopies, b.ImageURL,
		db.FmtTime(b.CreatedAt), db.FmtTime(b.UpdatedAt),
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	b.ID = id
	return nil
}

// ListCategories は登録済みの本のカテゴリを重複なしで返す
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT category FROM books ORDER BY category`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ExecUpdate は書誌の更新を1トランザクションで行う。
// ロック済みの行に対してリクエストをマージしてから書き戻すので、
// 読み取りと書き込みの間に貸出が割り込んでも在庫数を巻き戻さない。
// total_copies の増減はロック下の在庫数に相対適用する。
func (s *Store) ExecUpdate(ctx context.Context, id int64, req UpdateBookRequest, now time.Time) (*Book, error) {
	var out *Book
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		b, err := GetBookTx(ctx, tx, id, true, s.driver)
		if err != nil {
			return err
		}

		if req.Title != nil {
			b.Title = *req.Title
		}
		if req.Author != nil {
			b.Author = *req.Author
		}
		if req.ISBN != nil {
			b.ISBN = *req.ISBN
		}
		if req.Category != nil {
			b.Category = *req.Category
		}
		if req.PublishedYear != nil {
			b.PublishedYear = *req.PublishedYear
		}
		if req.Description != nil {
			b.Description = *req.Description
		}
		if req.ImageURL != nil {
			b.ImageURL = *req.ImageURL
		}
		if b.Title == "" || b.Author == "" || b.Category == "" {
			return apperr.ErrInvalid("title, author and category must not be empty")
		}

		if req.TotalCopies != nil && *req.TotalCopies != b.TotalCopies {
			newTotal := *req.TotalCopies
			if newTotal < 1 {
				return apperr.ErrInvalid("totalCopies must be >= 1")
			}
			// 貸出中の冊数より減らすことはできない
			if newTotal < b.IssuedCount() {
				return apperr.ErrInvalidState("cannot reduce totalCopies below issued count")
			}
			b.AvailableCopies += newTotal - b.TotalCopies
			b.TotalCopies = newTotal
		}

		b.UpdatedAt = now.UTC().Truncate(time.Second)

		// 行の存在はロック取得で確認済み。同値更新で RowsAffected=0 になる
		// ことがある（MySQL）ため、ここでは件数を検査しない。
		const q = `
UPDATE books
SET title = ?, author = ?, isbn = ?, category = ?, published_year = ?,
    description = ?, total_copies = ?, available_copies = ?, image_url = ?, updated_at = ?
WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q,
			b.Title, b.Author, b.ISBN, b.Category, b.PublishedYear,
			b.Description, b.TotalCopies, b.AvailableCopies, b.ImageURL, db.FmtTime(b.UpdatedAt),
			b.ID,
		); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// Delete は全冊が返却済みの本だけ消せる
func (s *Store) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM books WHERE id = ? AND available_copies = total_copies`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 1 {
		return nil
	}

	// 0行だった理由を切り分ける
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return apperr.ErrConflict("book has active loans")
}

// AdjustAvailability は在庫数を delta だけ増減する。[0, total] を外れる場合は何もしない。
func (s *Store) AdjustAvailability(ctx context.Context, id int64, delta int, now string) (*Book, error) {
	var out *Book
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := GetBookTx(ctx, tx, id, true, s.driver); err != nil {
			return err
		}
		if err := AdjustAvailabilityTx(ctx, tx, id, delta, now); err != nil {
			return err
		}
		b, err := GetBookTx(ctx, tx, id, false, s.driver)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// ---- Tx helpers（貸出側のトランザクションからも使う） ----

// GetBookTx は Tx 内で1冊取得する。forUpdate 指定時はMySQLでのみ行ロックを張る
// （sqliteはライター1本で直列化されるためロック句が無くても安全）。
func GetBookTx(ctx context.Context, tx db.DBTX, id int64, forUpdate bool, driver string) (*Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = ?`
	if forUpdate && driver == db.DriverMySQL {
		q += ` FOR UPDATE`
	}
	b, err := scanBook(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound("book not found")
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// AdjustAvailabilityTx は在庫数の増減をチェックと同時に1文で適用する。
// 範囲を外れる場合は行を更新せずエラーを返す。
func AdjustAvailabilityTx(ctx context.Context, tx db.DBTX, id int64, delta int, now string) error {
	const q = `
UPDATE books
SET available_copies = available_copies + ?, updated_at = ?
WHERE id = ?
  AND available_copies + ? >= 0
  AND available_copies + ? <= total_copies`
	res, err := tx.ExecContext(ctx, q, delta, now, id, delta, delta)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff != 1 {
		return apperr.ErrConflict("availability adjustment out of range")
	}
	return nil
}
