package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "menueditor-backend/pkg/errors"
)

// Timeout bounds every request with a deadline. Handlers run on the request
// goroutine and are expected to honour the context; when one returns after the
// deadline without writing, a 503 is sent in its place.
func Timeout(timeout time.Duration, logger *zap.Logger, errs *apperrors.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) && ww.Status() == 0 {
				logger.Warn("Request timeout",
					zap.String("path", r.URL.Path),
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Duration("timeout", timeout),
				)
				errs.Handle(w, r, apperrors.NewUnavailableError("request timed out"))
			}
		})
	}
}
