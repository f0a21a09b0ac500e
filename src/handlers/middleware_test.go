package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestAuthService() *security.AuthService {
	return security.NewAuthService("test-jwt-secret-key-that-is-long-enough-for-hs256", time.Hour)
}

func TestAuthMiddlewareAcceptsValidBearer(t *testing.T) {
	authService := newTestAuthService()
	token, err := authService.GenerateToken("iss-7")
	require.NoError(t, err)

	var gotIssuerID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issuerID, ok := GetIssuerIDFromContext(r.Context())
		require.True(t, ok)
		gotIssuerID = issuerID
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/captable", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	AuthMiddleware(authService, next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, "iss-7", gotIssuerID)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/captable", nil)
	w := httptest.NewRecorder()

	AuthMiddleware(newTestAuthService(), next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/captable", nil)
	req.Header.Set("Authorization", "Bearer not.a.valid.token")
	w := httptest.NewRecorder()

	AuthMiddleware(newTestAuthService(), next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
}

func TestGetIssuerIDFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetIssuerIDFromContext(req.Context())
	assert.False(t, ok)
}
