package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rakbuku/apiserver/types"
)

// BookRepository handles persistence for books, including the aggregated
// catalog listing and the flat detail join.
type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

// ListWithStats returns every book with its average rating and review
// count. The average is computed by the database and cast to NUMERIC(2,1)
// so it arrives already rounded to one decimal; COALESCE makes it 0.0 for
// books with no reviews.
func (r *BookRepository) ListWithStats(ctx context.Context) ([]types.BookSummary, error) {
	const query = `
		SELECT b.id, b.title, b.author, b.description,
			COALESCE(AVG(r.rating), 0)::NUMERIC(2,1) AS average_rating,
			COUNT(r.id) AS review_count
		FROM books b
		LEFT JOIN reviews r ON b.id = r.book_id
		GROUP BY b.id
		ORDER BY b.id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []types.BookSummary{}
	for rows.Next() {
		var summary types.BookSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.Title,
			&summary.Author,
			&summary.Description,
			&summary.AverageRating,
			&summary.ReviewCount,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// ListReviewRows returns the flat detail rows for one book: a plain LEFT
// JOIN without grouping, one row per review. A book with no reviews still
// yields one row with null review fields. No rows at all means the book
// does not exist.
func (r *BookRepository) ListReviewRows(ctx context.Context, bookID int) ([]types.BookReviewRow, error) {
	const query = `
		SELECT
			b.title AS judul_buku,
			b.author AS penulis,
			u.name AS nama_pemberi_review,
			r.rating,
			r.comment AS isi_review
		FROM books b
		LEFT JOIN reviews r ON b.id = r.book_id
		LEFT JOIN users u ON r.user_id = u.id
		WHERE b.id = $1`
	rows, err := r.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detail []types.BookReviewRow
	for rows.Next() {
		var row types.BookReviewRow
		if err := rows.Scan(
			&row.JudulBuku,
			&row.Penulis,
			&row.NamaPemberiReview,
			&row.Rating,
			&row.IsiReview,
		); err != nil {
			return nil, err
		}
		detail = append(detail, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(detail) == 0 {
		return nil, ErrNotFound
	}
	return detail, nil
}

func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	const query = `
		INSERT INTO books (title, author, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		book.Title,
		book.Author,
		book.Description,
	).Scan(&book.ID, &book.CreatedAt)
	if err != nil {
		return types.Book{}, err
	}
	return book, nil
}

// GetByTitle looks a book up by exact title match. Titles carry no unique
// constraint; if duplicates exist the lowest id wins.
func (r *BookRepository) GetByTitle(ctx context.Context, title string) (types.Book, error) {
	const query = `
		SELECT id, title, author, description, created_at
		FROM books
		WHERE title = $1
		ORDER BY id ASC
		LIMIT 1`
	var book types.Book
	err := r.db.QueryRowContext(ctx, query, title).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Description,
		&book.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Book{}, ErrNotFound
		}
		return types.Book{}, err
	}
	return book, nil
}
