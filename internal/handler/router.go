package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/chiayulin/mindcoach/backend/internal/handler/chat"
	personaHandler "github.com/chiayulin/mindcoach/backend/internal/handler/persona"
	webhookHandler "github.com/chiayulin/mindcoach/backend/internal/handler/webhook"
	middlewarePkg "github.com/chiayulin/mindcoach/backend/internal/middleware"
	personaModel "github.com/chiayulin/mindcoach/backend/internal/model/persona"
	"github.com/chiayulin/mindcoach/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. Either entry point may be nil
// when its credentials are absent; the route then answers 503 instead of
// being silently missing.
func NewRouter(personas personaModel.Store, webhook *webhookHandler.Handler, chat *chatHandler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if webhook != nil {
		webhook.RegisterRoutes(r)
	} else {
		r.Post("/webhook/line", unavailable("line channel not configured"))
	}

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(personas).RegisterRoutes(api)

		if chat != nil {
			chat.RegisterRoutes(api)
		} else {
			api.Post("/chat", unavailable("ai service not configured"))
		}
	})

	return r
}

func unavailable(reason string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusServiceUnavailable, reason)
	}
}
