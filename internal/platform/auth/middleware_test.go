package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LMS-backend/internal/membership"
)

// RequireAuth/RequireRole 通過後に Identity の中身を返すだけのルータ
func newProbeRouter(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	authed := r.Group("", RequireAuth(secret))
	authed.GET("/whoami", func(c *gin.Context) {
		id, role := Identity(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})

	admin := authed.Group("", RequireRole(membership.RoleAdmin))
	admin.GET("/admin-only", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestRequireAuthRoundTrip(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, testSecret)
	r := newProbeRouter(testSecret)

	// Signup で発行したトークンがそのままミドルウェアを通ること
	token, user, err := svc.Signup(context.Background(), signupInput("a@example.com"))
	require.NoError(t, err)

	w := get(r, "/whoami", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, user.ID, body.ID)
	assert.Equal(t, membership.RoleMember, body.Role)
}

func TestRequireAuthRejects(t *testing.T) {
	r := newProbeRouter(testSecret)

	cases := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + signToken(t, []byte("other-secret"), jwt.MapClaims{"sub": "1"})},
		{"non numeric sub", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "abc"})},
		{"missing sub", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "member"})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, "/whoami", tc.authorization)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

// alg none / HS256以外は署名が正しくても拒否する
func TestRequireAuthRejectsWrongAlg(t *testing.T) {
	r := newProbeRouter(testSecret)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"})
	s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	w := get(r, "/whoami", "Bearer "+s)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := newProbeRouter(testSecret)

	memberToken := signToken(t, testSecret, jwt.MapClaims{"sub": "1", "role": membership.RoleMember})
	adminToken := signToken(t, testSecret, jwt.MapClaims{"sub": "2", "role": membership.RoleAdmin})

	w := get(r, "/admin-only", "Bearer "+memberToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(r, "/admin-only", "Bearer "+adminToken)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandlerLoginFlow(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, testSecret)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	RegisterRoutes(api, api.Group("", RequireAuth(testSecret)), svc)

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/api/signup", `{"email":"a@example.com","password":"secret123","firstName":"Test","lastName":"User"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = post("/api/login", `{"email":"a@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Token string                  `json:"token"`
		User  membership.UserResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "a@example.com", body.User.Email)

	// 発行されたトークンで自分のプロフィールが引ける
	w = get(r, "/api/profile", "Bearer "+body.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var profile membership.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, body.User.ID, profile.ID)
	assert.Equal(t, "a@example.com", profile.Email)
	assert.Empty(t, profile.Password)

	w = get(r, "/api/profile", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// パスワード違いは401。メールの存在は応答から判別できない
	w = post("/api/login", `{"email":"a@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = post("/api/login", `{"email":"nobody@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 凍結済みアカウントは403
	require.NoError(t, store.SetActive(context.Background(), 1, false))
	w = post("/api/login", `{"email":"a@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
