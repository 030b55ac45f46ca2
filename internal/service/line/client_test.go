package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chiayulin/mindcoach/backend/internal/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.LineConfig{
		ChannelSecret: "secret",
		ChannelToken:  "token",
		APIBaseURL:    baseURL,
		ReplyTimeout:  2 * time.Second,
		MaxRetries:    2,
		RetryBackoff:  time.Millisecond,
	})
}

func TestReplyPostsTokenAndText(t *testing.T) {
	var gotAuth string
	var gotBody replyRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode reply body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	if err := client.Reply(context.Background(), "tok1", "深呼吸一下"); err != nil {
		t.Fatalf("unexpected delivery error: %v", err)
	}

	if gotAuth != "Bearer token" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if gotBody.ReplyToken != "tok1" {
		t.Fatalf("unexpected reply token: %q", gotBody.ReplyToken)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Text != "深呼吸一下" || gotBody.Messages[0].Type != "text" {
		t.Fatalf("unexpected messages payload: %+v", gotBody.Messages)
	}
}

func TestReplyRetriesTransientUntilExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	err := client.Reply(context.Background(), "tok1", "hi")
	if err == nil {
		t.Fatalf("expected delivery error after exhausted retries")
	}

	// MaxRetries == 2 means exactly three attempts.
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestReplyDoesNotRetryNonTransient(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	if err := client.Reply(context.Background(), "tok1", "hi"); err == nil {
		t.Fatalf("expected delivery error for auth failure")
	}

	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", got)
	}
}

func TestReplyRecoversWithinRetryBudget(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	if err := client.Reply(context.Background(), "tok1", "hi"); err != nil {
		t.Fatalf("expected recovery on final attempt, got %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestStatusErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tc := range cases {
		err := &StatusError{StatusCode: tc.status}
		if err.Transient() != tc.transient {
			t.Fatalf("status %d: expected transient=%v", tc.status, tc.transient)
		}
	}
}
