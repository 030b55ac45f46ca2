package webhook

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	webhookmodel "github.com/chiayulin/mindcoach/backend/internal/model/webhook"
	"github.com/chiayulin/mindcoach/backend/internal/service/line"
	"github.com/chiayulin/mindcoach/backend/internal/service/relay"
	"github.com/chiayulin/mindcoach/backend/pkg/utils"
)

// signatureHeader 是 LINE 平台送出的簽章標頭。
const signatureHeader = "X-Line-Signature"

// maxBodyBytes bounds how much webhook body is read before parsing.
const maxBodyBytes = 1 << 20

// Dispatcher routes a verified payload's events through the relay pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload webhookmodel.Payload) []relay.Outcome
}

// Handler 是 webhook 入口：驗證簽章、解析事件、轉交 relay。
type Handler struct {
	dispatcher    Dispatcher
	channelSecret string
}

// New 建立 webhook 處理器。
func New(dispatcher Dispatcher, channelSecret string) *Handler {
	return &Handler{
		dispatcher:    dispatcher,
		channelSecret: channelSecret,
	}
}

// RegisterRoutes 註冊 webhook 路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/line", h.handleEvents)
}

// handleEvents verifies before it parses: the signature is computed over the
// exact raw bytes, and nothing downstream runs until it checks out. Delivery
// failures are logged, never surfaced as webhook status codes, so the
// platform does not redeliver the same events.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := line.ValidateSignature(h.channelSecret, body, r.Header.Get(signatureHeader)); err != nil {
		switch {
		case errors.Is(err, line.ErrMissingSignature):
			utils.RespondError(w, http.StatusBadRequest, "missing signature")
		case errors.Is(err, line.ErrSignatureMismatch):
			log.Printf("[webhook] rejected request with invalid signature")
			utils.RespondError(w, http.StatusForbidden, "invalid signature")
		default:
			utils.RespondError(w, http.StatusBadRequest, "signature validation failed")
		}
		return
	}

	payload, err := webhookmodel.Parse(body)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	outcomes := h.dispatcher.Dispatch(r.Context(), payload)

	delivered, failed := 0, 0
	for _, outcome := range outcomes {
		switch outcome.State {
		case relay.StateDelivered:
			delivered++
		case relay.StateFailed:
			failed++
		}
	}
	if len(outcomes) > 0 {
		log.Printf("[webhook] processed %d events (delivered=%d failed=%d)", len(outcomes), delivered, failed)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
