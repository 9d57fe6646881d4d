package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vidsplit/vidsplit/internal/logging"
)

func fastNotifier(url string) *Notifier {
	n := New(url, "secret-token", "instance-1", logging.NewNopLogger())
	n.backoff = time.Millisecond
	return n
}

func TestJobFinished_Delivers(t *testing.T) {
	var got JobEvent
	var calls atomic.Int32
	var auth, reqID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		auth = r.Header.Get("Authorization")
		reqID = r.Header.Get("X-Vidsplit-Request-Id")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fastNotifier(srv.URL).JobFinished(context.Background(), JobEvent{
		JobID:      "job-1",
		Status:     "completed",
		Succeeded:  3,
		TotalBytes: 4096,
		Outputs:    []string{"/out/output_segment_1.mp4"},
	})

	if calls.Load() != 1 {
		t.Fatalf("got %d calls, want 1", calls.Load())
	}
	if got.JobID != "job-1" || got.Status != "completed" || got.Succeeded != 3 {
		t.Errorf("payload mismatch: %+v", got)
	}
	if got.InstanceID != "instance-1" {
		t.Errorf("instance_id = %q, want instance-1", got.InstanceID)
	}
	if got.FinishedAt.IsZero() {
		t.Error("finished_at not set")
	}
	if auth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if reqID == "" {
		t.Error("request id header missing")
	}
}

func TestJobFinished_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fastNotifier(srv.URL).JobFinished(context.Background(), JobEvent{JobID: "job-1", Status: "failed"})

	if calls.Load() != 3 {
		t.Fatalf("got %d calls, want 3 (two retries then success)", calls.Load())
	}
}

func TestJobFinished_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fastNotifier(srv.URL).JobFinished(context.Background(), JobEvent{JobID: "job-1", Status: "completed"})

	if calls.Load() != 1 {
		t.Fatalf("got %d calls, want 1 (4xx is permanent)", calls.Load())
	}
}

func TestJobFinished_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fastNotifier(srv.URL).JobFinished(context.Background(), JobEvent{JobID: "job-1", Status: "completed"})

	if calls.Load() != 3 {
		t.Fatalf("got %d calls, want 3", calls.Load())
	}
}

func TestJobFinished_NoURLIsNoop(t *testing.T) {
	n := New("", "", "", logging.NewNopLogger())
	// Must not panic or block.
	n.JobFinished(context.Background(), JobEvent{JobID: "job-1"})
}

func TestWebhookError_IsRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tc := range tests {
		err := &WebhookError{StatusCode: tc.status}
		if got := err.IsRetryable(); got != tc.want {
			t.Errorf("IsRetryable() for %d = %v, want %v", tc.status, got, tc.want)
		}
	}
}
