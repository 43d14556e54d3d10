// Package middleware holds the HTTP middleware of the development backend.
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CSRFCookieName  = "csrftoken"
	CSRFHeaderName  = "X-CSRFToken"
	RequestIDHeader = "X-Request-ID"
)

// CSRF implements the double-submit cookie check.
// Any request without the cookie gets one; unsafe methods must echo it in the header.
func CSRF(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(CSRFCookieName); err == nil {
				token = c.Value
			}

			if isUnsafe(r.Method) {
				header := r.Header.Get(CSRFHeaderName)
				if token == "" || header == "" || subtle.ConstantTimeCompare([]byte(token), []byte(header)) != 1 {
					logger.Warn("csrf check failed",
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Bool("has_cookie", token != ""))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"success": false,
						"message": "CSRF token missing or incorrect",
					})
					return
				}
			}

			if token == "" {
				http.SetCookie(w, &http.Cookie{
					Name:     CSRFCookieName,
					Value:    strings.ReplaceAll(uuid.NewString(), "-", ""),
					Path:     "/",
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isUnsafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs each request with its X-Request-ID, assigning one when absent
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			logger.Info("request",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}
