package lending

import "time"

// 期日・返却日はRFC3339か "2006-01-02" の文字列。
// パースできない場合はエラーにせずデフォルトに倒す（旧実装の挙動を踏襲）。
type BorrowRequest struct {
	DueDate *string `json:"dueDate,omitempty"`
}

type ReturnRequest struct {
	ReturnDate *string `json:"returnDate,omitempty"`
}

type BookSummary struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

type UserSummary struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type TransactionResponse struct {
	ID          int64        `json:"id"`
	ULID        string       `json:"ulid"`
	BookID      int64        `json:"bookId"`
	UserID      int64        `json:"userId"`
	Type        string       `json:"type"` // issue | return（フロント互換）
	IssueDate   time.Time    `json:"issueDate"`
	DueDate     time.Time    `json:"dueDate"`
	ReturnDate  *time.Time   `json:"returnDate"`
	Status      string       `json:"status"`
	Fine        float64      `json:"fine"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Book        *BookSummary `json:"book,omitempty"`
	User        *UserSummary `json:"user,omitempty"`
	DaysOverdue *int         `json:"daysOverdue,omitempty"`
}

type TransactionStatsResponse struct {
	TotalTransactions int     `json:"totalTransactions"`
	ActiveLoans       int     `json:"activeLoans"`
	ReturnedLoans     int     `json:"returnedLoans"`
	OverdueLoans      int     `json:"overdueLoans"`
	TotalFines        float64 `json:"totalFines"`
}

func buildTransactionResponse(t *Transaction) TransactionResponse {
	typ := "issue"
	if t.Status == StatusReturned {
		typ = "return"
	}
	return TransactionResponse{
		ID:         t.ID,
		ULID:       t.ULID,
		BookID:     t.BookID,
		UserID:     t.UserID,
		Type:       typ,
		IssueDate:  t.IssueDate,
		DueDate:    t.DueDate,
		ReturnDate: t.ReturnDate,
		Status:     t.Status,
		Fine:       t.Fine,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func buildTxnRowResponse(r *txnRow) TransactionResponse {
	resp := buildTransactionResponse(&r.Transaction)
	resp.Book = &BookSummary{Title: r.BookTitle, Author: r.BookAuthor, ISBN: r.BookISBN}
	resp.User = &UserSummary{FirstName: r.FirstName, LastName: r.LastName, Email: r.Email}
	return resp
}
