// Package middleware holds the HTTP wrappers shared by the summarizer and
// analytics services: request IDs, Prometheus instrumentation and request
// deadlines.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/idgen"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/metrics"
)

// Metrics counts requests by method, route and status and times them by
// method and route. A nil m disables instrumentation.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			defer func() {
				m.HTTPRequestsInFlight.Dec()
				route := normalizePath(r.URL.Path)
				m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
				m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.code())).Inc()
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// statusRecorder remembers the first status written. A handler that writes
// a body without a header has implicitly sent 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// normalizePath keeps route labels bounded: the segment after "corpora"
// becomes {corpus} and any ULID segment becomes {id}.
func normalizePath(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		switch {
		case seg == "":
		case i > 0 && segs[i-1] == "corpora":
			segs[i] = "{corpus}"
		case idgen.Valid(seg):
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}
