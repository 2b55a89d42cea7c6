package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "middleware-test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims JWTClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func claimsFor(uid string, roles ...string) JWTClaims {
	return JWTClaims{
		UserID: uid,
		Name:   "Test " + uid,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop()))
	auth := r.Group("/", JWTAuth(secret))
	auth.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": c.GetString(CtxUserID), "role": c.GetString(CtxRole)})
	})
	auth.PUT("/templates/:id/dependencies", Authorize(engine.ActionEditDependencies, engine.ResourceTemplate), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter()

	w := do(r, "GET", "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40100")

	w = do(r, "GET", "/whoami", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40102")

	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other-secret"), claimsFor("u1", "manager"))
	assert.Equal(t, http.StatusUnauthorized, do(r, "GET", "/whoami", wrongKey).Code)

	expired := claimsFor("u1", "manager")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	assert.Equal(t, http.StatusUnauthorized, do(r, "GET", "/whoami", sign(t, jwt.SigningMethodHS256, []byte(secret), expired)).Code)

	noUser := sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("", "manager"))
	w = do(r, "GET", "/whoami", noUser)
	assert.Contains(t, w.Body.String(), "40103")

	ok := sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("u1", "viewer", "operator"))
	w = do(r, "GET", "/whoami", ok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"u1","role":"operator"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, "GET", "/whoami?token="+ok, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthRejectsOtherAlgorithms(t *testing.T) {
	r := newRouter()
	hs512 := sign(t, jwt.SigningMethodHS512, []byte(secret), claimsFor("u1", "admin"))
	assert.Equal(t, http.StatusUnauthorized, do(r, "GET", "/whoami", hs512).Code)
}

func TestAuthorize(t *testing.T) {
	r := newRouter()
	cases := []struct {
		roles  []string
		status int
	}{
		{[]string{"manager"}, http.StatusNoContent},
		{[]string{"admin"}, http.StatusNoContent},
		{[]string{"operator"}, http.StatusForbidden},
		{[]string{"viewer"}, http.StatusForbidden},
		{[]string{"contractor"}, http.StatusForbidden},
	}
	for _, tc := range cases {
		token := sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("u1", tc.roles...))
		w := do(r, "PUT", "/templates/tpl-print/dependencies", token)
		assert.Equal(t, tc.status, w.Code, "roles %v", tc.roles)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := newRouter()
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
