package membership

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LMS-backend/internal/platform/apperr"
	"LMS-backend/internal/platform/db"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn, db.DriverSQLite))
	return conn
}

func mustUser(t *testing.T, s *Store, email, role string) *User {
	t.Helper()
	u := &User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
		CreatedAt:    baseTime,
	}
	require.NoError(t, s.Create(context.Background(), u))
	return u
}

func TestGetByEmail(t *testing.T) {
	conn := newTestDB(t)
	store := NewStore(conn)
	mustUser(t, store, "a@example.com", RoleMember)

	u, err := store.GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "a@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.Equal(t, baseTime, u.CreatedAt)

	// 未登録は (nil, nil)
	u, err = store.GetByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestCreateDuplicateEmail(t *testing.T) {
	conn := newTestDB(t)
	store := NewStore(conn)
	mustUser(t, store, "a@example.com", RoleMember)

	dup := &User{Email: "a@example.com", PasswordHash: "x", FirstName: "F", LastName: "L",
		Role: RoleMember, IsActive: true, CreatedAt: baseTime}
	// email はUNIQUE制約。重複チェック自体は auth 層が先に行う
	assert.Error(t, store.Create(context.Background(), dup))
}

func TestListMembersExcludesAdmins(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	mustUser(t, svc.Store(), "admin@example.com", RoleAdmin)
	mustUser(t, svc.Store(), "m1@example.com", RoleMember)
	mustUser(t, svc.Store(), "m2@example.com", RoleMember)

	list, err := svc.ListMembers(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, m := range list {
		assert.Equal(t, RoleMember, m.Role)
		// パスワードはレスポンスに含めない
		assert.Empty(t, m.Password)
	}
}

func TestMemberStats(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)

	// 会員ゼロでも0埋めで返る
	stats, err := svc.MemberStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalMembers)

	mustUser(t, svc.Store(), "admin@example.com", RoleAdmin) // adminは数えない
	mustUser(t, svc.Store(), "m1@example.com", RoleMember)
	m2 := mustUser(t, svc.Store(), "m2@example.com", RoleMember)
	mustUser(t, svc.Store(), "m3@example.com", RoleMember)

	_, err = svc.SetMemberActive(context.Background(), m2.ID, false)
	require.NoError(t, err)

	stats, err = svc.MemberStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalMembers)
	assert.Equal(t, 2, stats.ActiveMembers)
	assert.Equal(t, 1, stats.BlockedMembers)
}

func TestSetMemberActive(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	u := mustUser(t, svc.Store(), "m@example.com", RoleMember)

	res, err := svc.SetMemberActive(context.Background(), u.ID, false)
	require.NoError(t, err)
	assert.False(t, res.IsActive)

	got, err := svc.Store().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// 同じ値をもう一度設定してもエラーにならない
	res, err = svc.SetMemberActive(context.Background(), u.ID, false)
	require.NoError(t, err)
	assert.False(t, res.IsActive)

	res, err = svc.SetMemberActive(context.Background(), u.ID, true)
	require.NoError(t, err)
	assert.True(t, res.IsActive)
}

func TestSetMemberActiveRejectsAdmins(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	admin := mustUser(t, svc.Store(), "admin@example.com", RoleAdmin)

	// admin の凍結は member 管理APIの対象外
	_, err := svc.SetMemberActive(context.Background(), admin.ID, false)
	var api *apperr.APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeNotFound, api.Code)

	_, err = svc.SetMemberActive(context.Background(), 999, false)
	require.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeNotFound, api.Code)
}
