package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveRequestAggregatesByLabel(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/v1/videos/vid_123", 200, 10*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/v1/videos/vid_456", 200, 5*time.Millisecond)

	var out strings.Builder
	recorder.Write(&out)
	rendered := out.String()

	if !strings.Contains(rendered, `cliptide_http_requests_total{method="GET",path="/api/v1/videos/:id",status="200"} 2`) {
		t.Fatalf("expected aggregated counter, got:\n%s", rendered)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"/healthz", "/healthz"},
		{"/api/v1/videos", "/api/v1/videos"},
		{"/api/v1/videos/vid_93ab", "/api/v1/videos/:id"},
		{"/api/v1/users/usr_1/watch-history", "/api/v1/users/:id/watch-history"},
		{"/api/v1/videos/550e8400123/", "/api/v1/videos/:id"},
	}
	for _, tc := range cases {
		if got := normalizePath(tc.in); got != tc.want {
			t.Fatalf("normalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAuthEventCounters(t *testing.T) {
	recorder := New()
	recorder.ObserveAuthEvent("Login_Success")
	recorder.ObserveAuthEvent("login_success")
	recorder.ObserveAuthEvent("")

	counts := recorder.AuthEventCounts()
	if counts["login_success"] != 2 {
		t.Fatalf("expected 2 login_success events, got %d", counts["login_success"])
	}
	if counts["unknown"] != 1 {
		t.Fatalf("expected blank events to count as unknown, got %d", counts["unknown"])
	}
}

func TestSessionGaugeNeverGoesNegative(t *testing.T) {
	recorder := New()
	recorder.SessionClosed()
	if got := recorder.ActiveSessions(); got != 0 {
		t.Fatalf("expected gauge to stay at 0, got %d", got)
	}
	recorder.SessionOpened()
	recorder.SessionOpened()
	recorder.SessionClosed()
	if got := recorder.ActiveSessions(); got != 1 {
		t.Fatalf("expected 1 active session, got %d", got)
	}
}

func TestHandlerServesPrometheusText(t *testing.T) {
	recorder := New()
	recorder.ObserveVideoEvent("upload")

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), `cliptide_video_events_total{event="upload"} 1`) {
		t.Fatalf("expected video event counter, got:\n%s", rec.Body.String())
	}
}
