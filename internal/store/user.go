package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rakbuku/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, email, name, password, created_at
		FROM users
		WHERE email = $1`
	var user types.User
	var password sql.NullString
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&password,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.PasswordHash = password.String
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (email, name, password)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.Name,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

// UpsertByEmail inserts the user or, when the email is already taken,
// returns the existing row's id. The DO UPDATE clause is a no-op write that
// makes RETURNING yield the id on the conflict path as well, so the whole
// ensure-user step is a single statement.
func (r *UserRepository) UpsertByEmail(ctx context.Context, user types.User) (int, error) {
	const query = `
		INSERT INTO users (email, name, password)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`
	var id int
	var password any
	if user.PasswordHash != "" {
		password = user.PasswordHash
	}
	if err := r.db.QueryRowContext(ctx, query, user.Email, user.Name, password).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
