// Package middleware holds HTTP-level plumbing shared by every route:
// request logging and WebSocket connection lifecycle logging.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogMiddleware logs method, path, remote address, and duration of each
// request after the handler returns.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start),
			}).Info("http request")
		})
	}
}

// LogWebSocketConnect records an accepted WebSocket upgrade and the guest
// identity it resolved to.
func LogWebSocketConnect(logger *logrus.Logger, remoteAddr string, playerID uuid.UUID) {
	logger.WithFields(logrus.Fields{
		"remote": remoteAddr,
		"player": playerID,
	}).Info("websocket connected")
}

// LogWebSocketDisconnect records the end of a connection; err is nil on a
// clean close.
func LogWebSocketDisconnect(logger *logrus.Logger, remoteAddr string, playerID uuid.UUID, err error) {
	fields := logrus.Fields{
		"remote": remoteAddr,
		"player": playerID,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("websocket disconnected")
}
