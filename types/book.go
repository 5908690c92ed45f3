package types

import "time"

// Book is a catalog entry. Description is a pointer because the column is
// nullable and API responses distinguish null from empty.
type Book struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Author      string    `json:"author" db:"author"`
	Description *string   `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// BookSummary is one row of the public catalog listing: a book joined with
// its aggregated review statistics. AverageRating is rendered as a string
// with one decimal place ("0.0" when the book has no reviews).
type BookSummary struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Description   *string `json:"description"`
	AverageRating string  `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// BookReviewRow is one row of the flat book-detail response: the book
// left-joined with a single review and its author. A book with no reviews
// produces exactly one row with null review fields. The field names are the
// public API contract and are kept as-is.
type BookReviewRow struct {
	JudulBuku         string  `json:"judul_buku"`
	Penulis           string  `json:"penulis"`
	NamaPemberiReview *string `json:"nama_pemberi_review"`
	Rating            *int    `json:"rating"`
	IsiReview         *string `json:"isi_review"`
}
