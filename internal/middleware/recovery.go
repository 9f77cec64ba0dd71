package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	apperrors "menueditor-backend/pkg/errors"
)

// Recovery middleware handles panics and converts them to INTERNAL error responses
func Recovery(logger *zap.Logger, errs *apperrors.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("Panic while serving request",
						zap.Any("panic", rec),
						zap.String("request_id", GetRequestID(r.Context())),
						zap.ByteString("stack", debug.Stack()),
					)
					errs.Handle(w, r, apperrors.NewInternalError(fmt.Sprintf("panic: %v", rec)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
