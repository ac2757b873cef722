package auth

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LMS-backend/internal/membership"
	"LMS-backend/internal/platform/apperr"
	"LMS-backend/internal/platform/db"
)

var testSecret = []byte("test-secret")

func newTestStore(t *testing.T) *membership.Store {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn, db.DriverSQLite))
	return membership.NewStore(conn)
}

func signupInput(email string) SignupInput {
	return SignupInput{
		Email:     email,
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "User",
	}
}

func requireCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	require.Error(t, err)
	var api *apperr.APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, code, api.Code)
}

func TestSignup(t *testing.T) {
	svc := NewService(newTestStore(t), testSecret)

	token, user, err := svc.Signup(context.Background(), signupInput("a@example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotZero(t, user.ID)
	// ロール未指定は member、アカウントは有効状態で作る
	assert.Equal(t, membership.RoleMember, user.Role)
	assert.True(t, user.IsActive)
	// 生パスワードもハッシュもレスポンスに出さない
	assert.Empty(t, user.Password)
}

func TestSignupValidation(t *testing.T) {
	svc := NewService(newTestStore(t), testSecret)
	in := signupInput("a@example.com")
	in.Password = ""
	_, _, err := svc.Signup(context.Background(), in)
	requireCode(t, err, apperr.CodeInvalidArgument)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := NewService(newTestStore(t), testSecret)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, signupInput("a@example.com"))
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, signupInput("a@example.com"))
	requireCode(t, err, apperr.CodeConflict)
}

func TestLogin(t *testing.T) {
	svc := NewService(newTestStore(t), testSecret)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, signupInput("a@example.com"))
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, "a@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "a@example.com", user.Email)
}

func TestLoginWrongCredentials(t *testing.T) {
	svc := NewService(newTestStore(t), testSecret)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, signupInput("a@example.com"))
	require.NoError(t, err)

	// 間違いパスワードと未登録メールは同じエラーコードにする（存在を漏らさない）
	_, _, err = svc.Login(ctx, "a@example.com", "wrong")
	requireCode(t, err, apperr.CodeInvalidArgument)

	_, _, err = svc.Login(ctx, "nobody@example.com", "secret123")
	requireCode(t, err, apperr.CodeInvalidArgument)
}

func TestLoginInactiveAccount(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, testSecret)
	ctx := context.Background()

	_, user, err := svc.Signup(ctx, signupInput("a@example.com"))
	require.NoError(t, err)
	require.NoError(t, store.SetActive(ctx, user.ID, false))

	_, _, err = svc.Login(ctx, "a@example.com", "secret123")
	requireCode(t, err, apperr.CodeForbidden)
}
