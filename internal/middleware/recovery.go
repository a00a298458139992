package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/2beens/notesbox/internal/telemetry/metrics"
	"github.com/2beens/notesbox/pkg"

	log "github.com/sirupsen/logrus"
)

// panicResponse matches the {"detail": ...} error body of the notes handlers.
var panicResponse = []byte(`{"detail":"Internal server error"}`)

// PanicRecovery turns a handler panic into a 500 with a JSON error body.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				log.WithFields(log.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"request_id": r.Header.Get(RequestIDHeader),
				}).Errorf("notes handler panic: %v\n%s", recovered, debug.Stack())
				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				pkg.WriteResponseBytes(w, pkg.ContentType.JSON, panicResponse, http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
