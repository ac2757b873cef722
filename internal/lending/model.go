package lending

import "time"

const (
	StatusActive   = "active"
	StatusReturned = "returned"
)

// Transaction は transactions テーブルの1行（貸出1件）を表す。
// 状態遷移は active → returned の一方向のみ。
type Transaction struct {
	ID         int64
	ULID       string
	BookID     int64
	UserID     int64
	IssueDate  time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Status     string
	Fine       float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// 一覧表示用に本と利用者の要約を抱き合わせた行
type txnRow struct {
	Transaction
	BookTitle  string
	BookAuthor string
	BookISBN   string
	FirstName  string
	LastName   string
	Email      string
}
