package catalog

import "time"

// JSONのキーはフロント（Angular）互換のcamelCaseで固定

type CreateBookRequest struct {
	Title         string  `json:"title" binding:"required"`
	Author        string  `json:"author" binding:"required"`
	ISBN          *string `json:"isbn,omitempty"`
	Category      string  `json:"category" binding:"required"`
	PublishedYear int     `json:"publishedYear"`
	Description   *string `json:"description,omitempty"`
	TotalCopies   int     `json:"totalCopies" binding:"required"`
	ImageURL      *string `json:"imageUrl,omitempty"`
}

type UpdateBookRequest struct {
	Title         *string `json:"title,omitempty"`
	Author        *string `json:"author,omitempty"`
	ISBN          *string `json:"isbn,omitempty"`
	Category      *string `json:"category,omitempty"`
	PublishedYear *int    `json:"publishedYear,omitempty"`
	Description   *string `json:"description,omitempty"`
	TotalCopies   *int    `json:"totalCopies,omitempty"`
	ImageURL      *string `json:"imageUrl,omitempty"`
}

type BookResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Category        string    `json:"category"`
	PublishedYear   int       `json:"publishedYear"`
	Description     string    `json:"description"`
	TotalCopies     int       `json:"totalCopies"`
	AvailableCopies int       `json:"availableCopies"`
	ImageURL        string    `json:"imageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func buildBookResponse(b *Book) BookResponse {
	return BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Category:        b.Category,
		PublishedYear:   b.PublishedYear,
		Description:     b.Description,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		ImageURL:        b.ImageURL,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
