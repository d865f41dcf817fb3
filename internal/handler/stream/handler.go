package stream

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/divyam8333/CureBot/internal/model/chat"
	chatservice "github.com/divyam8333/CureBot/internal/service/chat"
	streamservice "github.com/divyam8333/CureBot/internal/service/stream"
	"github.com/divyam8333/CureBot/pkg/utils"
)

// Handler exposes assistant-reply streaming via Server-Sent Events.
type Handler struct {
	engine *streamservice.Engine
	chats  *chatservice.Service
	obs    streamservice.Observer
}

// New creates a stream handler. obs may be nil.
func New(engine *streamservice.Engine, chats *chatservice.Service, obs streamservice.Observer) *Handler {
	return &Handler{engine: engine, chats: chats, obs: obs}
}

// RegisterRoutes registers the streaming routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
	r.Post("/stream/cancel", h.handleCancel)
}

// StreamResponse is one streaming event on the wire.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	userMessage := r.URL.Query().Get("message")

	// Append the triggering user message. When the client already persisted
	// it via REST, avoid duplicating it.
	if !h.hasMatchingUserMessage(sessionID, userMessage) {
		if _, err := h.chats.SendUserMessage(sessionID, userMessage); err != nil {
			switch {
			case errors.Is(err, chatservice.ErrSessionNotFound):
				utils.RespondError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, chatservice.ErrEmptySubmission):
				utils.RespondError(w, http.StatusBadRequest, err.Error())
			default:
				utils.RespondError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
	}

	st, err := h.engine.Start(sessionID, userMessage, h.obs)
	if err != nil {
		switch {
		case errors.Is(err, streamservice.ErrStreamActive):
			utils.RespondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, chatservice.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.SetupSSEHeaders(w)
	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	reader := st.Fragments()
	defer reader.Close()

	content := ""
	for {
		frag, recvErr := reader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.sendSSE(w, flusher, StreamResponse{Event: "error", Error: recvErr.Error()})
			return
		}

		content = frag.Content
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   frag.Text,
		})
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   content,
	})
	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] closed event stream for session=%s", sessionID)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.engine.Cancel()
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// hasMatchingUserMessage reports whether the session's last message is an
// identical user message.
func (h *Handler) hasMatchingUserMessage(sessionID, content string) bool {
	if content == "" {
		return false
	}

	messages, err := h.chats.Transcript(sessionID)
	if err != nil || len(messages) == 0 {
		return false
	}

	last := messages[len(messages)-1]
	return last.Role == chatmodel.RoleUser && last.Content == content
}

// sendSSE sends a Server-Sent Event.
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}
