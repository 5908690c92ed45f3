package types

import "time"

// Review is a user's rating of a book. Rating is constrained to [1,5] by
// both the review endpoint and a storage-layer CHECK constraint.
type Review struct {
	ID        int       `json:"id" db:"id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   *string   `json:"comment" db:"comment"`
	BookID    int       `json:"book_id" db:"book_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
