package chat

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chiayulin/mindcoach/backend/internal/model/persona"
	webhookmodel "github.com/chiayulin/mindcoach/backend/internal/model/webhook"
	"github.com/chiayulin/mindcoach/backend/internal/service/history"
	"github.com/chiayulin/mindcoach/backend/internal/service/relay"
	"github.com/chiayulin/mindcoach/backend/pkg/utils"
)

// Handler 同步聊天入口：第一方客戶端直接取得回覆，不經過 webhook。
type Handler struct {
	completer  relay.Completer
	personas   persona.Store
	recorder   history.Recorder
	maxTextLen int
}

// New 建立聊天處理器。
func New(completer relay.Completer, personas persona.Store, recorder history.Recorder, maxTextLen int) *Handler {
	return &Handler{
		completer:  completer,
		personas:   personas,
		recorder:   recorder,
		maxTextLen: maxTextLen,
	}
}

// RegisterRoutes 註冊聊天相關的路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

// handleChat bounds the message the same way the webhook path does, runs it
// under the companion persona, and returns the reply inline. userId and mood
// are accepted and recorded but not interpreted.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
		UserID  string `json:"userId"`
		Mood    string `json:"mood"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	companion, ok := h.personas.FindByID(persona.CompanionID)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "persona unavailable")
		return
	}

	text := webhookmodel.Truncate(message, h.maxTextLen)
	result := h.completer.Complete(r.Context(), companion, text)

	interactionID := ""
	if h.recorder != nil {
		id, err := h.recorder.Record(r.Context(), history.Interaction{
			Source:   history.SourceChat,
			UserRef:  payload.UserID,
			Inbound:  text,
			Outbound: result.Text,
			Degraded: result.Degraded,
		})
		if err != nil {
			log.Printf("[chat] failed to record interaction: %v", err)
		} else {
			interactionID = id
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"reply":         result.Text,
		"degraded":      result.Degraded,
		"interactionId": interactionID,
	})
}
