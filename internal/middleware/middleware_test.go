package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"menueditor-backend/pkg/auth"
	apperrors "menueditor-backend/pkg/errors"
)

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Type
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("Should generate request ID when not provided", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, GetRequestID(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("Should use provided request ID", func(t *testing.T) {
		expectedID := "test-request-id"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", expectedID)
		w := httptest.NewRecorder()

		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, expectedID, GetRequestID(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		assert.Equal(t, expectedID, w.Header().Get("X-Request-ID"))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("Should turn panics into internal errors", func(t *testing.T) {
		errs := apperrors.NewHandler(zap.NewNop(), false)
		handler := Recovery(zap.NewNop(), errs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, string(apperrors.ErrorTypeInternal), errorType(t, w))
	})
}

func TestTimeoutMiddleware(t *testing.T) {
	errs := apperrors.NewHandler(zap.NewNop(), false)

	t.Run("Should answer for handlers that overrun silently", func(t *testing.T) {
		handler := Timeout(10*time.Millisecond, zap.NewNop(), errs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Should leave fast responses alone", func(t *testing.T) {
		handler := Timeout(time.Second, zap.NewNop(), errs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasDeadline := r.Context().Deadline()
			assert.True(t, hasDeadline)
			w.WriteHeader(http.StatusNoContent)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

type stubValidator struct {
	claims *auth.Claims
	err    error
}

func (s stubValidator) ValidateToken(string) (*auth.Claims, error) { return s.claims, s.err }

func TestAuthenticate(t *testing.T) {
	errs := apperrors.NewHandler(zap.NewNop(), false)
	var seen *auth.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Should run as the development principal without a validator", func(t *testing.T) {
		w := httptest.NewRecorder()
		Authenticate(nil, zap.NewNop(), errs)(next).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Same(t, DevelopmentPrincipal, seen)
	})

	t.Run("Should attach the token's principal", func(t *testing.T) {
		v := stubValidator{claims: &auth.Claims{UserID: "u-1", Permissions: []string{"files:config"}}}
		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "token"})

		w := httptest.NewRecorder()
		Authenticate(v, zap.NewNop(), errs)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u-1", seen.UserID)
	})

	t.Run("Should reject invalid tokens", func(t *testing.T) {
		w := httptest.NewRecorder()
		Authenticate(stubValidator{err: auth.ErrExpiredToken}, zap.NewNop(), errs)(next).
			ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, string(apperrors.ErrorTypeUnauthorized), errorType(t, w))
	})
}

func TestRequirePermission(t *testing.T) {
	errs := apperrors.NewHandler(zap.NewNop(), false)
	handler := RequirePermission("files:config", errs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("Should allow granted callers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(auth.WithPrincipal(context.Background(), &auth.Principal{Permissions: []string{"files:config"}}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should fail closed", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, string(apperrors.ErrorTypePermissionDenied), errorType(t, w))
	})
}
