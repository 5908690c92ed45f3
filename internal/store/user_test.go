package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/rakbuku/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("a@x.com", "A", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))

	repo := NewUserRepository(db)
	user, err := repo.Create(context.Background(), types.User{
		Email:        "a@x.com",
		Name:         "A",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, now, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("a@x.com", "A", "hash").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint \"users_email_key\""})

	repo := NewUserRepository(db)
	_, err = repo.Create(context.Background(), types.User{
		Email:        "a@x.com",
		Name:         "A",
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, password, created_at")).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password", "created_at"}).
			AddRow(3, "a@x.com", "A", "hash", now))

	repo := NewUserRepository(db)
	user, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 3, user.ID)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetByEmailNullPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Rows predating the password migration carry NULL passwords.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, password, created_at")).
		WithArgs("old@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password", "created_at"}).
			AddRow(4, "old@x.com", "Old", nil, time.Now()))

	repo := NewUserRepository(db)
	user, err := repo.GetByEmail(context.Background(), "old@x.com")
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, password, created_at")).
		WithArgs("nobody@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password", "created_at"}))

	repo := NewUserRepository(db)
	_, err = repo.GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpsertByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (email) DO UPDATE")).
		WithArgs("goodreads@import.com", "Goodreads Archive", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	repo := NewUserRepository(db)
	id, err := repo.UpsertByEmail(context.Background(), types.User{
		Email: "goodreads@import.com",
		Name:  "Goodreads Archive",
	})
	require.NoError(t, err)
	assert.Equal(t, 9, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
