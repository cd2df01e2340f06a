package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory metrics counters and gauges for HTTP
// requests, authentication events, and video activity. It coordinates
// concurrent writers via a RWMutex while exposing a thread-safe gauge for
// active session tracking.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	authEvents      map[string]uint64
	videoEvents     map[string]uint64
	activeSessions  atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		authEvents:      make(map[string]uint64),
		videoEvents:     make(map[string]uint64),
	}
}

// Default returns the singleton Recorder instance shared across helper
// functions for packages that do not require custom instrumentation
// pipelines.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveAuthEvent records an authentication lifecycle event such as
// "login_success", "login_failure", "rotation", "rotation_rejected", or
// "logout".
func (r *Recorder) ObserveAuthEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.authEvents[normalized]++
	r.mu.Unlock()
}

// ObserveVideoEvent records a video activity event such as "upload",
// "publish", or "view".
func (r *Recorder) ObserveVideoEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.videoEvents[normalized]++
	r.mu.Unlock()
}

// SessionOpened increments the active session gauge after a successful
// login.
func (r *Recorder) SessionOpened() {
	r.activeSessions.Add(1)
}

// SessionClosed decrements the active session gauge, guarding against
// negative counts when logouts race.
func (r *Recorder) SessionClosed() {
	r.decrementGauge(&r.activeSessions)
}

// ActiveSessions exposes the current gauge of open sessions.
func (r *Recorder) ActiveSessions() int64 {
	return r.activeSessions.Load()
}

// AuthEventCounts returns a copy of the auth event counters for testing and
// reporting purposes.
func (r *Recorder) AuthEventCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := make(map[string]uint64, len(r.authEvents))
	for k, v := range r.authEvents {
		events[k] = v
	}
	return events
}

// Reset clears all counters and gauges on the recorder. It is intended for
// test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.authEvents = make(map[string]uint64)
	r.videoEvents = make(map[string]uint64)
	r.activeSessions.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus
// text exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting
// label sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	authEvents := sortedKeys(r.authEvents)
	videoEvents := sortedKeys(r.videoEvents)

	fmt.Fprintln(w, "# HELP cliptide_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE cliptide_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "cliptide_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP cliptide_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE cliptide_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "cliptide_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP cliptide_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE cliptide_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "cliptide_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP cliptide_auth_events_total Authentication lifecycle events by type")
	fmt.Fprintln(w, "# TYPE cliptide_auth_events_total counter")
	for _, event := range authEvents {
		count := r.authEvents[event]
		fmt.Fprintf(w, "cliptide_auth_events_total{event=\"%s\"} %d\n", event, count)
	}

	fmt.Fprintln(w, "# HELP cliptide_active_sessions Current number of open sessions")
	fmt.Fprintln(w, "# TYPE cliptide_active_sessions gauge")
	fmt.Fprintf(w, "cliptide_active_sessions %d\n", r.activeSessions.Load())

	fmt.Fprintln(w, "# HELP cliptide_video_events_total Video activity events by type")
	fmt.Fprintln(w, "# TYPE cliptide_video_events_total counter")
	for _, event := range videoEvents {
		count := r.videoEvents[event]
		fmt.Fprintf(w, "cliptide_video_events_total{event=\"%s\"} %d\n", event, count)
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(counters map[string]uint64) []string {
	keys := make([]string, 0, len(counters))
	for key := range counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
			continue
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if strings.Contains(segment, "_") {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveAuthEvent records an auth event on the default recorder.
func ObserveAuthEvent(event string) {
	defaultRecorder.ObserveAuthEvent(event)
}

// ObserveVideoEvent records a video event on the default recorder.
func ObserveVideoEvent(event string) {
	defaultRecorder.ObserveVideoEvent(event)
}

// SessionOpened increments the default recorder's session gauge.
func SessionOpened() {
	defaultRecorder.SessionOpened()
}

// SessionClosed decrements the default recorder's session gauge.
func SessionClosed() {
	defaultRecorder.SessionClosed()
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
