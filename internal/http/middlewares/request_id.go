package middlewares

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tripnest/auth/internal/observability/logger"
)

// WithRequestID asigna un request ID (o respeta el header entrante), inyecta
// un logger scoped en el contexto y loguea el resumen del request al terminar.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			log := logger.From(r.Context()).With(logger.RequestID(requestID))
			ctx := setRequestID(r.Context(), requestID)
			ctx = logger.ToContext(ctx, log)

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			log.Info("request",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Status(sw.status),
				logger.Duration(time.Since(start)),
			)
		})
	}
}

// statusWriter captura el status code para el log de acceso.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
