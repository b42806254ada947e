package monitoring

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memevote_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	VotesToggled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memevote_votes_toggled_total",
		Help: "Total vote toggles, by outcome",
	}, []string{"result"})

	MemesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memevote_memes_created_total",
		Help: "Total memes successfully created",
	})

	CommentsPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memevote_comments_posted_total",
		Help: "Total comments successfully posted",
	})

	SignupSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memevote_signup_success_total",
		Help: "Total successful signups",
	})

	SigninFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memevote_signin_failure_total",
		Help: "Total failed signin attempts",
	}, []string{"reason"})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "memevote_events_published_total",
		Help: "Total events published, by type",
	}, []string{"type"})

	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memevote_events_dropped_total",
		Help: "Events dropped because a subscriber's buffer was full",
	})

	WSSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memevote_ws_subscriptions",
		Help: "Current number of topic subscriptions held by WebSocket clients",
	})
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(VotesToggled)
	prometheus.MustRegister(MemesCreated)
	prometheus.MustRegister(CommentsPosted)
	prometheus.MustRegister(SignupSuccess)
	prometheus.MustRegister(SigninFailure)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(EventsDropped)
	prometheus.MustRegister(WSSubscriptions)
}

// Middleware to track request timing and status code
type statusRecordingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (rw *statusRecordingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (rw *statusRecordingWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// InstrumentHandler records request durations labelled by the matched chi route pattern,
// so /api/memes/1 and /api/memes/2 share the /api/memes/{id} series.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecordingWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(rw, r)

		RequestDuration.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(rw.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
