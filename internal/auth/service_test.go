package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var errUnknown = errors.New("unknown error")

type MockUserRepository struct {
	mock.Mock
}

func (r *MockUserRepository) Create(ctx context.Context, email, hashedPassword string) (*models.User, error) {
	args := r.Called(ctx, email, hashedPassword)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (r *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := r.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (r *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := r.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func setupAuthService(t testing.TB) (*AuthService, *MockUserRepository) {
	t.Helper()

	users := new(MockUserRepository)
	svc := NewAuthService(users, NewTokenManager("secret", time.Hour))

	return svc, users
}

func hashPassword(t testing.TB, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	return string(hash)
}

func TestAuthService_Register(t *testing.T) {
	t.Run("email taken", func(t *testing.T) {
		svc, users := setupAuthService(t)

		users.On("Create", mock.Anything, "user@example.com", mock.Anything).
			Return(nil, database.ErrUserExists).
			Once()

		user, err := svc.Register(context.TODO(), "user@example.com", "password123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrUserExists)
		assert.Nil(t, user)
	})

	t.Run("stores a hash, not the password", func(t *testing.T) {
		svc, users := setupAuthService(t)

		want := &models.User{ID: 1, Email: "user@example.com"}

		users.On("Create", mock.Anything, "user@example.com", mock.MatchedBy(func(hash string) bool {
			return hash != "password123" &&
				bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")) == nil
		})).Return(want, nil).Once()

		user, err := svc.Register(context.TODO(), "user@example.com", "password123")

		assert.NoError(t, err)
		assert.Equal(t, want, user)
		users.AssertExpectations(t)
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		svc, users := setupAuthService(t)

		users.On("GetByEmail", mock.Anything, "nosuch@example.com").
			Return(nil, database.ErrUserNotFound).
			Once()

		token, err := svc.Login(context.TODO(), "nosuch@example.com", "password123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Empty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, users := setupAuthService(t)

		user := &models.User{ID: 1, Email: "user@example.com", HashedPassword: hashPassword(t, "password123")}

		users.On("GetByEmail", mock.Anything, "user@example.com").
			Return(user, nil).
			Once()

		token, err := svc.Login(context.TODO(), "user@example.com", "wrongpass")

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Empty(t, token)
	})

	t.Run("repository failure is not invalid credentials", func(t *testing.T) {
		svc, users := setupAuthService(t)

		users.On("GetByEmail", mock.Anything, "user@example.com").
			Return(nil, errUnknown).
			Once()

		token, err := svc.Login(context.TODO(), "user@example.com", "password123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
		assert.Empty(t, token)
	})

	t.Run("issues a verifiable token", func(t *testing.T) {
		svc, users := setupAuthService(t)

		user := &models.User{ID: 42, Email: "user@example.com", HashedPassword: hashPassword(t, "password123")}

		users.On("GetByEmail", mock.Anything, "user@example.com").
			Return(user, nil).
			Once()

		token, err := svc.Login(context.TODO(), "user@example.com", "password123")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		userID, err := svc.ParseToken(token)
		assert.NoError(t, err)
		assert.EqualValues(t, 42, userID)
	})
}

func TestAuthService_GetUser(t *testing.T) {
	t.Run("user not found", func(t *testing.T) {
		svc, users := setupAuthService(t)

		users.On("GetByID", mock.Anything, int64(42)).
			Return(nil, database.ErrUserNotFound).
			Once()

		user, err := svc.GetUser(context.TODO(), 42)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrUserNotFound)
		assert.Nil(t, user)
	})

	t.Run("success", func(t *testing.T) {
		svc, users := setupAuthService(t)

		want := &models.User{ID: 42, Email: "user@example.com"}

		users.On("GetByID", mock.Anything, int64(42)).
			Return(want, nil).
			Once()

		user, err := svc.GetUser(context.TODO(), 42)

		assert.NoError(t, err)
		assert.Equal(t, want, user)
	})
}
