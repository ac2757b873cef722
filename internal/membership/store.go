package membership

import (
	"context"
	"database/sql"
	"errors"

	"LMS-backend/internal/platform/apperr"
	"LMS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var isActive int
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &isActive, &createdAt)
	if err != nil {
		return nil, err
	}
	u.IsActive = isActive != 0
	if u.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// 見つからなければ (nil, nil)
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`
	u, err := scanUser(s.db.QueryRowContext(ctx, q, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) Create(ctx context.Context, u *User) error {
	const q = `
INSERT INTO users (email, password_hash, first_name, last_name, role, is_active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	active := 0
	if u.IsActive {
		active = 1
	}
	res, err := s.db.ExecContext(ctx, q,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, active, db.FmtTime(u.CreatedAt))
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	u.ID = id
	return nil
}

func (s *Store) ListMembers(ctx context.Context) ([]User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE role = ? ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, RoleMember)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// MemberStats は member の総数と有効数を1クエリで数える
func (s *Store) MemberStats(ctx context.Context) (total, active int, err error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(is_active), 0) FROM users WHERE role = ?`
	err = s.db.QueryRowContext(ctx, q, RoleMember).Scan(&total, &active)
	return total, active, err
}

// SetActive は member のみ対象（admin の凍結は対象外、旧実装どおり）。
// MySQLは同値更新で RowsAffected=0 を返すので、存在確認は呼び出し側で行う。
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	const q = `UPDATE users SET is_active = ? WHERE id = ? AND role = ?`
	v := 0
	if active {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, q, v, id, RoleMember)
	return err
}
