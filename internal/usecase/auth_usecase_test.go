package usecase_test

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepository struct{ mock.Mock }

func (m *mockUserRepository) FindByID(ctx context.Context, userID int64) (model.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, q repo.UserListQuery) ([]model.User, int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

func (m *mockUserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, u model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type stubTokenIssuer struct {
	token string
	err   error
}

func (s *stubTokenIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return s.token, now.Add(15 * time.Minute), nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(hash)
}

// =====================
// Register
// =====================

func TestAuthUsecase_Register_CreatesUser(t *testing.T) {
	users := new(mockUserRepository)
	users.On("FindByEmail", mock.Anything, "alice@example.com").
		Return(model.User{}, repo.ErrNotFound)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
		return u.Email == "alice@example.com" &&
			u.Role == model.RoleUser &&
			u.IsActive &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password1")) == nil
	})).Return(model.User{ID: 1, Email: "alice@example.com", Role: model.RoleUser, IsActive: true}, nil)
	uc := usecase.NewAuthUsecase(users, &stubTokenIssuer{token: "tok"}, bcrypt.MinCost)

	got, err := uc.Register(context.Background(), usecase.AuthRegisterInput{
		Email:    "  Alice@Example.com ",
		Password: "password1",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	users.AssertExpectations(t)
}

func TestAuthUsecase_Register_ValidatesInput(t *testing.T) {
	uc := usecase.NewAuthUsecase(new(mockUserRepository), &stubTokenIssuer{}, bcrypt.MinCost)

	_, err := uc.Register(context.Background(), usecase.AuthRegisterInput{Email: "", Password: "password1"})
	assertErrContains(t, err, "invalid email")

	_, err = uc.Register(context.Background(), usecase.AuthRegisterInput{Email: "not-an-email", Password: "password1"})
	assertErrContains(t, err, "invalid email")

	_, err = uc.Register(context.Background(), usecase.AuthRegisterInput{Email: "a@example.com", Password: "short"})
	assertErrContains(t, err, "invalid password")
}

func TestAuthUsecase_Register_DuplicateEmail(t *testing.T) {
	users := new(mockUserRepository)
	users.On("FindByEmail", mock.Anything, "alice@example.com").
		Return(model.User{ID: 1, Email: "alice@example.com"}, nil)
	uc := usecase.NewAuthUsecase(users, &stubTokenIssuer{}, bcrypt.MinCost)

	_, err := uc.Register(context.Background(), usecase.AuthRegisterInput{
		Email:    "alice@example.com",
		Password: "password1",
	})

	assertHTTPStatus(t, err, 409)
	assertErrContains(t, err, "email already exists")
}

// =====================
// Login
// =====================

func TestAuthUsecase_Login_Success(t *testing.T) {
	users := new(mockUserRepository)
	users.On("FindByEmail", mock.Anything, "alice@example.com").
		Return(model.User{
			ID: 1, Email: "alice@example.com", Role: model.RoleUser, IsActive: true,
			PasswordHash: mustHash(t, "password1"),
		}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u model.User) bool {
		return u.ID == 1 && u.LastLoginAt != nil
	})).Return(nil)
	uc := usecase.NewAuthUsecase(users, &stubTokenIssuer{token: "signed-token"}, bcrypt.MinCost)

	got, err := uc.Login(context.Background(), usecase.AuthLoginInput{
		Email:    "alice@example.com",
		Password: "password1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "signed-token", got.Token.AccessToken)
	assert.Equal(t, int(15*time.Minute/time.Second), got.Token.ExpiresIn)
	assert.Equal(t, int64(1), got.User.ID)
	users.AssertExpectations(t)
}

// 不在・パスワード不一致・無効ユーザーは全部同じ401
func TestAuthUsecase_Login_Unauthorized(t *testing.T) {
	hash := mustHash(t, "password1")

	cases := []struct {
		name     string
		user     model.User
		findErr  error
		password string
	}{
		{name: "unknown email", findErr: repo.ErrNotFound, password: "password1"},
		{
			name:     "wrong password",
			user:     model.User{ID: 1, IsActive: true, PasswordHash: hash},
			password: "wrong-password",
		},
		{
			name:     "inactive user",
			user:     model.User{ID: 1, IsActive: false, PasswordHash: hash},
			password: "password1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := new(mockUserRepository)
			users.On("FindByEmail", mock.Anything, "alice@example.com").
				Return(tc.user, tc.findErr)
			uc := usecase.NewAuthUsecase(users, &stubTokenIssuer{token: "tok"}, bcrypt.MinCost)

			_, err := uc.Login(context.Background(), usecase.AuthLoginInput{
				Email:    "alice@example.com",
				Password: tc.password,
			})

			assertHTTPStatus(t, err, 401)
			assertErrContains(t, err, "unauthorized")
		})
	}
}

func TestAuthUsecase_Login_InvalidBody(t *testing.T) {
	uc := usecase.NewAuthUsecase(new(mockUserRepository), &stubTokenIssuer{}, bcrypt.MinCost)

	_, err := uc.Login(context.Background(), usecase.AuthLoginInput{Email: "", Password: ""})

	assertHTTPStatus(t, err, 400)
	assertErrContains(t, err, "invalid body")
}
