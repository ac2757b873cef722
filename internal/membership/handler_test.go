package membership_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LMS-backend/internal/membership"
	"LMS-backend/internal/platform/auth"
	"LMS-backend/internal/platform/db"
)

var testSecret = []byte("test-secret")

func newHandlerTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn, db.DriverSQLite))
	return conn
}

func createUser(t *testing.T, s *membership.Store, email, role string) *membership.User {
	t.Helper()
	u := &membership.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Create(context.Background(), u))
	return u
}

func newTestRouter(svc *membership.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	admin := r.Group("/api", auth.RequireAuth(testSecret), auth.RequireRole(membership.RoleAdmin))
	membership.RegisterRoutes(admin, svc)
	return r
}

func bearerToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + s
}

func doJSON(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMembersEndpointRequiresAdmin(t *testing.T) {
	conn := newHandlerTestDB(t)
	r := newTestRouter(membership.NewService(conn))

	w := doJSON(r, http.MethodGet, "/api/members", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/api/members", bearerToken(t, membership.RoleMember), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodGet, "/api/members", bearerToken(t, membership.RoleAdmin), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListMembersEndpoint(t *testing.T) {
	conn := newHandlerTestDB(t)
	svc := membership.NewService(conn)
	createUser(t, svc.Store(), "admin@example.com", membership.RoleAdmin)
	createUser(t, svc.Store(), "m@example.com", membership.RoleMember)
	r := newTestRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/members", bearerToken(t, membership.RoleAdmin), "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []membership.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "m@example.com", list[0].Email)
}

func TestMemberStatsEndpoint(t *testing.T) {
	conn := newHandlerTestDB(t)
	svc := membership.NewService(conn)
	createUser(t, svc.Store(), "m@example.com", membership.RoleMember)
	r := newTestRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/members/stats", bearerToken(t, membership.RoleMember), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodGet, "/api/members/stats", bearerToken(t, membership.RoleAdmin), "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats membership.MemberStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalMembers)
	assert.Equal(t, 1, stats.ActiveMembers)
	assert.Equal(t, 0, stats.BlockedMembers)
}

func TestUpdateMemberEndpoint(t *testing.T) {
	conn := newHandlerTestDB(t)
	svc := membership.NewService(conn)
	u := createUser(t, svc.Store(), "m@example.com", membership.RoleMember)
	r := newTestRouter(svc)
	admin := bearerToken(t, membership.RoleAdmin)
	path := "/api/members/" + strconv.FormatInt(u.ID, 10)

	w := doJSON(r, http.MethodPut, path, admin, `{"isActive":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res membership.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.IsActive)

	// isActive なしは400
	w = doJSON(r, http.MethodPut, path, admin, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/api/members/999", admin, `{"isActive":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
