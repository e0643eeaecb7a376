package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type accessLogEntry struct {
	Timestamp  string `json:"ts"`
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method"`
	Route      string `json:"route,omitempty"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	Bytes      int    `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// AccessLog writes one JSON line per request through the std logger.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		line, err := json.Marshal(accessLogEntry{
			Timestamp:  start.UTC().Format(time.RFC3339Nano),
			RequestID:  GetRequestID(r.Context()),
			Method:     r.Method,
			Route:      routePattern(r),
			Path:       r.URL.Path,
			Status:     rec.Status(),
			Bytes:      rec.written,
			DurationMS: time.Since(start).Milliseconds(),
			RemoteAddr: clientIP(r),
		})
		if err != nil {
			log.Printf("access_log: %v", err)
			return
		}
		log.Println(string(line))
	})
}
