package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chiayulin/mindcoach/backend/internal/config"
	"github.com/chiayulin/mindcoach/backend/internal/fallback"
	"github.com/chiayulin/mindcoach/backend/internal/model/persona"
	"github.com/chiayulin/mindcoach/backend/internal/service/ai"
	"github.com/chiayulin/mindcoach/backend/internal/service/history"
	"github.com/chiayulin/mindcoach/backend/internal/service/line"
	"github.com/chiayulin/mindcoach/backend/internal/service/relay"
)

const testSecret = "test-channel-secret"

// stubCompleter either answers with fixed text or behaves like a completion
// service that timed out: deterministic pool pick seeded by the input text.
type stubCompleter struct {
	mu       sync.Mutex
	calls    []string
	reply    string
	timeouts bool
	pool     *fallback.Pool
}

func (c *stubCompleter) Complete(_ context.Context, _ persona.Persona, text string) ai.Result {
	c.mu.Lock()
	c.calls = append(c.calls, text)
	c.mu.Unlock()

	if c.timeouts {
		return ai.Result{Text: c.pool.Pick(text), Degraded: true, Reason: ai.ReasonTimeout}
	}
	return ai.Result{Text: c.reply}
}

func (c *stubCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type replyCapture struct {
	mu      sync.Mutex
	replies []capturedReply
	status  int
}

type capturedReply struct {
	Token string
	Text  string
}

func (c *replyCapture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ReplyToken string `json:"replyToken"`
			Messages   []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		c.mu.Lock()
		text := ""
		if len(body.Messages) > 0 {
			text = body.Messages[0].Text
		}
		c.replies = append(c.replies, capturedReply{Token: body.ReplyToken, Text: text})
		status := c.status
		c.mu.Unlock()

		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}
}

func (c *replyCapture) all() []capturedReply {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedReply(nil), c.replies...)
}

func setup(t *testing.T, completer *stubCompleter, capture *replyCapture) http.Handler {
	t.Helper()

	lineSrv := httptest.NewServer(capture.handler())
	t.Cleanup(lineSrv.Close)

	lineClient := line.NewClient(config.LineConfig{
		ChannelSecret: testSecret,
		ChannelToken:  "token",
		APIBaseURL:    lineSrv.URL,
		ReplyTimeout:  2 * time.Second,
		MaxRetries:    0,
		RetryBackoff:  time.Millisecond,
	})

	store := persona.NewMemoryStore(persona.Seed())
	coach, ok := store.FindByID(persona.MindCoachID)
	if !ok {
		t.Fatalf("mind coach persona missing")
	}

	relaySvc := relay.NewService(completer, lineClient, history.NewMemoryRecorder(8), coach, config.RelayConfig{MaxTextLength: 1000})

	r := chi.NewRouter()
	New(relaySvc, testSecret).RegisterRoutes(r)
	return r
}

func post(router http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/line", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestWebhookMissingSignatureReturns400(t *testing.T) {
	completer := &stubCompleter{reply: "hi"}
	capture := &replyCapture{}
	router := setup(t, completer, capture)

	resp := post(router, []byte(`{"events":[]}`), "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if completer.callCount() != 0 || len(capture.all()) != 0 {
		t.Fatalf("expected no completion or delivery calls")
	}
}

func TestWebhookSignatureOverDifferentBodyReturns403(t *testing.T) {
	completer := &stubCompleter{reply: "hi"}
	capture := &replyCapture{}
	router := setup(t, completer, capture)

	signature := line.Sign(testSecret, []byte(`{"events":[{"type":"follow"}]}`))
	resp := post(router, []byte(`{"events":[]}`), signature)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	if completer.callCount() != 0 || len(capture.all()) != 0 {
		t.Fatalf("expected no completion or delivery calls")
	}
}

func TestWebhookEmptyEventsReturns200(t *testing.T) {
	completer := &stubCompleter{reply: "hi"}
	capture := &replyCapture{}
	router := setup(t, completer, capture)

	body := []byte(`{"events":[]}`)
	resp := post(router, body, line.Sign(testSecret, body))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestWebhookMalformedJSONReturns400(t *testing.T) {
	completer := &stubCompleter{reply: "hi"}
	capture := &replyCapture{}
	router := setup(t, completer, capture)

	body := []byte(`{"events":`)
	resp := post(router, body, line.Sign(testSecret, body))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if completer.callCount() != 0 {
		t.Fatalf("malformed payload must short-circuit before dispatch")
	}
}

func TestWebhookEndToEndSuccess(t *testing.T) {
	completer := &stubCompleter{reply: "Take a breath."}
	capture := &replyCapture{}
	router := setup(t, completer, capture)

	body := []byte(`{"events":[{"type":"message","replyToken":"tok1","message":{"type":"text","text":"I feel stressed"}}]}`)
	resp := post(router, body, line.Sign(testSecret, body))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	replies := capture.all()
	if len(replies) != 1 {
		t.Fatalf("expected exactly one reply delivery, got %d", len(replies))
	}
	if replies[0].Token != "tok1" || replies[0].Text != "Take a breath." {
		t.Fatalf("unexpected reply: %+v", replies[0])
	}
}

func TestWebhookEndToEndCompletionTimeoutFallsBack(t *testing.T) {
	pool := fallback.Default()
	completer := &stubCompleter{timeouts: true, pool: pool}
	capture := &replyCapture{}
	router := setup(t, completer, capture)

	body := []byte(`{"events":[{"type":"message","replyToken":"tok1","message":{"type":"text","text":"I feel stressed"}}]}`)
	resp := post(router, body, line.Sign(testSecret, body))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	replies := capture.all()
	if len(replies) != 1 {
		t.Fatalf("expected exactly one reply delivery, got %d", len(replies))
	}
	if replies[0].Token != "tok1" || replies[0].Text != pool.Pick("I feel stressed") {
		t.Fatalf("expected deterministic fallback reply, got %+v", replies[0])
	}
}

func TestWebhookDeliveryFailureStillReturns200(t *testing.T) {
	completer := &stubCompleter{reply: "hi"}
	capture := &replyCapture{status: http.StatusBadRequest}
	router := setup(t, completer, capture)

	body := []byte(`{"events":[{"type":"message","replyToken":"tok1","message":{"type":"text","text":"hello"}}]}`)
	resp := post(router, body, line.Sign(testSecret, body))
	if resp.Code != http.StatusOK {
		t.Fatalf("delivery failures must not surface as webhook errors, got %d", resp.Code)
	}
}
