package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	handler := APIKeyMiddleware("secret-key", testLogger)(okHandler())

	t.Run("ValidKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ussd", nil)
		req.Header.Set("X-API-Key", "secret-key")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ussd", nil)
		req.Header.Set("X-API-Key", "wrong-key")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("MissingKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ussd", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestIPAllowlistMiddleware(t *testing.T) {
	t.Run("AllowedIP", func(t *testing.T) {
		handler := IPAllowlistMiddleware([]string{"10.0.0.5"}, testLogger)(okHandler())
		req := httptest.NewRequest(http.MethodPost, "/ussd", nil)
		req.RemoteAddr = "10.0.0.5:51234"
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("BlockedIP", func(t *testing.T) {
		handler := IPAllowlistMiddleware([]string{"10.0.0.5"}, testLogger)(okHandler())
		req := httptest.NewRequest(http.MethodPost, "/ussd", nil)
		req.RemoteAddr = "192.168.1.9:51234"
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("WildcardAllowsAny", func(t *testing.T) {
		handler := IPAllowlistMiddleware([]string{"*"}, testLogger)(okHandler())
		req := httptest.NewRequest(http.MethodPost, "/ussd", nil)
		req.RemoteAddr = "192.168.1.9:51234"
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("RemoteAddrWithoutPort", func(t *testing.T) {
		handler := IPAllowlistMiddleware([]string{"10.0.0.5"}, testLogger)(okHandler())
		req := httptest.NewRequest(http.MethodPost, "/ussd", nil)
		req.RemoteAddr = "10.0.0.5"
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestAdminAuthMiddleware(t *testing.T) {
	const apiKey = "admin-api-key"
	const jwtSecret = "admin-jwt-secret"
	handler := AdminAuthMiddleware(apiKey, jwtSecret, testLogger)(okHandler())

	signToken := func(t *testing.T, secret string, expiresAt time.Time) string {
		t.Helper()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "ops",
			"exp": expiresAt.Unix(),
		})
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	t.Run("ValidAPIKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ussd/stats", nil)
		req.Header.Set("X-API-Key", apiKey)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("ValidBearerToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ussd/stats", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwtSecret, time.Now().Add(time.Hour)))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ussd/stats", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwtSecret, time.Now().Add(-time.Hour)))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("TokenSignedWithWrongSecret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ussd/stats", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", time.Now().Add(time.Hour)))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("NoCredentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ussd/stats", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("WrongAPIKeyDoesNotFallThroughToJWT", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ussd/stats", nil)
		req.Header.Set("X-API-Key", "wrong")
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwtSecret, time.Now().Add(time.Hour)))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
