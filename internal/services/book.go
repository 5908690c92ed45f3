package services

import (
	"context"

	"github.com/rakbuku/apiserver/types"
)

// BookRepository defines persistence operations for books.
type BookRepository interface {
	ListWithStats(ctx context.Context) ([]types.BookSummary, error)
	ListReviewRows(ctx context.Context, bookID int) ([]types.BookReviewRow, error)
	Create(ctx context.Context, book types.Book) (types.Book, error)
	GetByTitle(ctx context.Context, title string) (types.Book, error)
}

// BookService encapsulates book use-cases.
type BookService struct {
	repo BookRepository
}

func NewBookService(repo BookRepository) *BookService {
	return &BookService{repo: repo}
}

func (s *BookService) ListWithStats(ctx context.Context) ([]types.BookSummary, error) {
	return s.repo.ListWithStats(ctx)
}

func (s *BookService) ListReviewRows(ctx context.Context, bookID int) ([]types.BookReviewRow, error) {
	return s.repo.ListReviewRows(ctx, bookID)
}

func (s *BookService) Create(ctx context.Context, book types.Book) (types.Book, error) {
	return s.repo.Create(ctx, book)
}

func (s *BookService) GetByTitle(ctx context.Context, title string) (types.Book, error) {
	return s.repo.GetByTitle(ctx, title)
}
