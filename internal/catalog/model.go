package catalog

import "time"

// Book は books テーブルの1行を表す
type Book struct {
	ID              int64
	Title           string
	Author          string
	ISBN            string
	Category        string
	PublishedYear   int
	Description     string
	TotalCopies     int
	AvailableCopies int
	ImageURL        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// 貸出中の冊数
func (b *Book) IssuedCount() int {
	return b.TotalCopies - b.AvailableCopies
}
