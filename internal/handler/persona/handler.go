package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chiayulin/mindcoach/backend/internal/model/persona"
	"github.com/chiayulin/mindcoach/backend/pkg/utils"
)

// Handler persona 目錄的HTTP處理器
type Handler struct {
	personas persona.Store
}

// New 建立 persona 處理器
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 註冊 persona 相關的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
}

// handleListPersonas 列出所有 persona
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}
