package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/evdata/evdata/internal/logger"
)

// RequestLogger logs one line per request after it completes.
func RequestLogger(next http.Handler) http.Handler {
	log := logger.Component("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := log.WithFields(logrus.Fields{
			"status":     status,
			"latency":    time.Since(start).String(),
			"ip":         r.RemoteAddr,
			"method":     r.Method,
			"path":       r.URL.Path,
			"bytes":      ww.BytesWritten(),
			"request_id": middleware.GetReqID(r.Context()),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("Request")
			return
		}
		entry.Info("Request")
	})
}
