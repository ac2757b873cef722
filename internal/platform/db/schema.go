package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MySQL用スキーマ
var schemaMySQL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'member',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at VARCHAR(32) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		author VARCHAR(255) NOT NULL,
		isbn VARCHAR(32) NOT NULL DEFAULT '',
		category VARCHAR(100) NOT NULL,
		published_year INT NOT NULL DEFAULT 0,
		description TEXT,
		total_copies INT NOT NULL,
		available_copies INT NOT NULL,
		image_url VARCHAR(512) NOT NULL DEFAULT '',
		created_at VARCHAR(32) NOT NULL,
		updated_at VARCHAR(32) NOT NULL,
		CONSTRAINT chk_copies CHECK (available_copies >= 0 AND available_copies <= total_copies)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		txn_ulid CHAR(26) NOT NULL UNIQUE,
		book_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		issue_date VARCHAR(32) NOT NULL,
		due_date VARCHAR(32) NOT NULL,
		return_date VARCHAR(32) NULL,
		status VARCHAR(16) NOT NULL,
		fine DOUBLE NOT NULL DEFAULT 0,
		created_at VARCHAR(32) NOT NULL,
		updated_at VARCHAR(32) NOT NULL,
		KEY idx_txn_user (user_id, status),
		KEY idx_txn_book (book_id, status),
		CONSTRAINT fk_txn_book FOREIGN KEY (book_id) REFERENCES books (id),
		CONSTRAINT fk_txn_user FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
}

// sqlite用スキーマ（開発・テスト用。列構成はMySQLと揃えること）
var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'member',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		isbn TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		published_year INTEGER NOT NULL DEFAULT 0,
		description TEXT,
		total_copies INTEGER NOT NULL,
		available_copies INTEGER NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (available_copies >= 0 AND available_copies <= total_copies)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		txn_ulid TEXT NOT NULL UNIQUE,
		book_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		issue_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		return_date TEXT,
		status TEXT NOT NULL,
		fine REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (book_id) REFERENCES books (id),
		FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_user ON transactions (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_book ON transactions (book_id, status)`,
}

func Migrate(ctx context.Context, conn *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case DriverMySQL:
		stmts = schemaMySQL
	case DriverSQLite:
		stmts = schemaSQLite
	default:
		return fmt.Errorf("未対応のDBドライバ: %s", driver)
	}
	for _, q := range stmts {
		if _, err := conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("スキーマ作成に失敗: %w", err)
		}
	}
	return nil
}

type seedUser struct {
	email, password, first, last, role string
}

type seedBook struct {
	title, author, isbn, category, description, imageURL string
	year, copies                                         int
}

var seedUsers = []seedUser{
	{"admin@library.com", "admin123", "Admin", "User", "admin"},
	{"member@library.com", "member123", "John", "Doe", "member"},
	{"jane@library.com", "jane123", "Jane", "Smith", "member"},
}

var seedBooks = []seedBook{
	{"The Great Gatsby", "F. Scott Fitzgerald", "978-0-7432-7356-5", "Fiction", "A classic American novel set in the Jazz Age.", "https://via.placeholder.com/150x200", 1925, 5},
	{"To Kill a Mockingbird", "Harper Lee", "978-0-06-112008-4", "Fiction", "A gripping tale of racial injustice and childhood innocence.", "https://via.placeholder.com/150x200", 1960, 4},
	{"Clean Code", "Robert C. Martin", "978-0-13-235088-4", "Technology", "A handbook of agile software craftsmanship.", "https://via.placeholder.com/150x200", 2008, 6},
	{"Sapiens", "Yuval Noah Harari", "978-0-06-231609-7", "History", "A brief history of humankind.", "https://via.placeholder.com/150x200", 2011, 3},
	{"The Lean Startup", "Eric Ries", "978-0-307-88789-4", "Non-Fiction", "How constant innovation creates radically successful businesses.", "https://via.placeholder.com/150x200", 2011, 4},
}

// Seed は初期データを投入する。users が空のときだけ動く。
func Seed(ctx context.Context, conn *sql.DB) error {
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	now := FmtTime(time.Now())
	return RunInTx(ctx, conn, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, u := range seedUsers {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			const q = `
INSERT INTO users (email, password_hash, first_name, last_name, role, is_active, created_at)
VALUES (?, ?, ?, ?, ?, 1, ?)`
			if _, err := tx.ExecContext(ctx, q, u.email, string(hash), u.first, u.last, u.role, now); err != nil {
				return err
			}
		}
		for _, b := range seedBooks {
			const q = `
INSERT INTO books (title, author, isbn, category, published_year, description, total_copies, available_copies, image_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
			if _, err := tx.ExecContext(ctx, q, b.title, b.author, b.isbn, b.category, b.year, b.description, b.copies, b.copies, b.imageURL, now, now); err != nil {
				return err
			}
		}
		return nil
	})
}
