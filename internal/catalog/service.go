package catalog

import (
	"context"
	"database/sql"
	"time"

	"LMS-backend/internal/platform/apperr"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	store *Store
	clock Clock
}

func NewService(conn *sql.DB, driver string) *Service {
	return &Service{store: NewStore(conn, driver), clock: realClock{}}
}

func (s *Service) ListBooks(ctx context.Context) ([]BookResponse, error) {
	books, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BookResponse, 0, len(books))
	for i := range books {
		out = append(out, buildBookResponse(&books[i]))
	}
	return out, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (*BookResponse, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := buildBookResponse(b)
	return &resp, nil
}

func (s *Service) CreateBook(ctx context.Context, req CreateBookRequest) (*BookResponse, error) {
	if req.Title == "" || req.Author == "" || req.Category == "" {
		return nil, apperr.ErrInvalid("title, author and category are required")
	}
	if req.TotalCopies < 1 {
		return nil, apperr.ErrInvalid("totalCopies must be >= 1")
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	b := &Book{
		Title:           req.Title,
		Author:          req.Author,
		Category:        req.Category,
		PublishedYear:   req.PublishedYear,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies, // 新規登録時は全冊貸出可能
		ImageURL:        "https://via.placeholder.com/150x200",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.ISBN != nil {
		b.ISBN = *req.ISBN
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.ImageURL != nil && *req.ImageURL != "" {
		b.ImageURL = *req.ImageURL
	}

	if err := s.store.Insert(ctx, b); err != nil {
		return nil, err
	}
	resp := buildBookResponse(b)
	return &resp, nil
}

// マージと検証はロック下で行う（在庫数の巻き戻し防止）
func (s *Service) UpdateBook(ctx context.Context, id int64, req UpdateBookRequest) (*BookResponse, error) {
	b, err := s.store.ExecUpdate(ctx, id, req, s.clock.Now())
	if err != nil {
		return nil, err
	}
	resp := buildBookResponse(b)
	return &resp, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []string{}
	}
	return cats, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
