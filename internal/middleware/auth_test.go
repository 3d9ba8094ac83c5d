package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/whoami", RequireToken(secret), func(c *gin.Context) {
		c.String(http.StatusOK, Operator(c))
	})
	return r
}

func get(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireTokenOpenWithoutSecret(t *testing.T) {
	w := get(newRouter(nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRequireToken(t *testing.T) {
	secret := []byte("top-secret")
	r := newRouter(secret)

	token, err := IssueToken(secret, "alice", time.Hour)
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, token).Code)

	other, err := IssueToken([]byte("other"), "mallory", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+other).Code)

	expired, err := IssueToken(secret, "alice", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+expired).Code)
}

func TestIssueTokenNeedsSecret(t *testing.T) {
	_, err := IssueToken(nil, "alice", time.Hour)
	assert.Error(t, err)

	token, err := IssueToken([]byte("k"), "bob", time.Hour)
	require.NoError(t, err)
	subject, err := ParseToken([]byte("k"), token)
	require.NoError(t, err)
	assert.Equal(t, "bob", subject)
}
