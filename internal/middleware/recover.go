package middleware

import (
	"fmt"
	"net/http"

	myErr "vape-market/internal/types/errors"

	"go.uber.org/zap"
)

// Recover не дает панике в обработчике уронить процесс:
// клиент получает 500 с деталями, паника пишется в лог
func Recover(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Errorw("panic while handling request",
						"method", r.Method,
						"url", r.URL.String(),
						"panic", rec,
					)
					myErr.SendInternalTo(w, fmt.Errorf("%v", rec), logger)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
