package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/vadimbarashkov/shortlink/internal/database"
)

var userColumns = []string{"id", "email", "hashed_password", "is_superuser", "created_at"}

func setupUserRepository(t testing.TB) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	repo := NewUserRepository(db)

	t.Cleanup(func() {
		mockDB.Close()
		db.Close()
	})

	return repo, mock
}

func TestUserRepository_Create(t *testing.T) {
	t.Run("user exists", func(t *testing.T) {
		repo, mock := setupUserRepository(t)

		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("user@example.com", "hash").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		user, err := repo.Create(context.TODO(), "user@example.com", "hash")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrUserExists)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupUserRepository(t)

		rows := sqlmock.NewRows(userColumns).
			AddRow(1, "user@example.com", "hash", false, time.Time{})

		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("user@example.com", "hash").
			WillReturnRows(rows)

		user, err := repo.Create(context.TODO(), "user@example.com", "hash")

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.EqualValues(t, 1, user.ID)
		assert.Equal(t, "user@example.com", user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	t.Run("user not found", func(t *testing.T) {
		repo, mock := setupUserRepository(t)

		mock.ExpectQuery(`SELECT \* FROM users`).
			WithArgs("nosuch@example.com").
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByEmail(context.TODO(), "nosuch@example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrUserNotFound)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupUserRepository(t)

		rows := sqlmock.NewRows(userColumns).
			AddRow(1, "user@example.com", "hash", true, time.Time{})

		mock.ExpectQuery(`SELECT \* FROM users`).
			WithArgs("user@example.com").
			WillReturnRows(rows)

		user, err := repo.GetByEmail(context.TODO(), "user@example.com")

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.True(t, user.IsSuperuser)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	t.Run("user not found", func(t *testing.T) {
		repo, mock := setupUserRepository(t)

		mock.ExpectQuery(`SELECT \* FROM users`).
			WithArgs(int64(42)).
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByID(context.TODO(), 42)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrUserNotFound)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupUserRepository(t)

		rows := sqlmock.NewRows(userColumns).
			AddRow(42, "user@example.com", "hash", false, time.Time{})

		mock.ExpectQuery(`SELECT \* FROM users`).
			WithArgs(int64(42)).
			WillReturnRows(rows)

		user, err := repo.GetByID(context.TODO(), 42)

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.EqualValues(t, 42, user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
