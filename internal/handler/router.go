package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/divyam8333/CureBot/internal/handler/chat"
	"github.com/divyam8333/CureBot/internal/handler/events"
	streamhandler "github.com/divyam8333/CureBot/internal/handler/stream"
	middlewarePkg "github.com/divyam8333/CureBot/internal/middleware"
	chatservice "github.com/divyam8333/CureBot/internal/service/chat"
	streamservice "github.com/divyam8333/CureBot/internal/service/stream"
	"github.com/divyam8333/CureBot/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chats *chatservice.Service, engine *streamservice.Engine, hub *events.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chathandler.New(chats)

	var obs streamservice.Observer
	if hub != nil {
		obs = hub
	}
	streamHandler := streamhandler.New(engine, chats, obs)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		if hub != nil {
			hub.RegisterRoutes(api)
		}
	})

	return r
}
