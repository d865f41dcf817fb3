package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/divyam8333/CureBot/internal/model/chat"
	chatservice "github.com/divyam8333/CureBot/internal/service/chat"
	"github.com/divyam8333/CureBot/pkg/utils"
)

// Handler exposes the chat repository over HTTP.
type Handler struct {
	chats *chatservice.Service
}

// New creates the chat handler.
func New(chats *chatservice.Service) *Handler {
	return &Handler{chats: chats}
}

// RegisterRoutes registers the session CRUD routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleListSessions)
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/active", h.handleGetActive)
	r.Put("/sessions/active", h.handleSetActive)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Patch("/sessions/{sessionID}", h.handleRenameSession)
	r.Delete("/sessions/{sessionID}", h.handleDeleteSession)
	r.Get("/sessions/{sessionID}/messages", h.handleHistory)
	r.Post("/sessions/{sessionID}/messages", h.handleSendMessage)
	r.Delete("/sessions/{sessionID}/messages", h.handleClearMessages)
	r.Post("/sessions/{sessionID}/attachments", h.handleAddAttachments)
	r.Delete("/sessions/{sessionID}/attachments/{index}", h.handleRemoveAttachment)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries := h.chats.ListSessions(r.URL.Query().Get("q"))
	utils.RespondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.chats.CreateSession()
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetActive(w http.ResponseWriter, r *http.Request) {
	session, ok := h.chats.GetActive()
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "no active session")
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ID == "" {
		utils.RespondError(w, http.StatusBadRequest, "id is required")
		return
	}

	h.chats.SetActive(payload.ID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.chats.GetSession(chi.URLParam(r, "sessionID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.chats.RenameSession(chi.URLParam(r, "sessionID"), payload.Title)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.chats.DeleteSession(chi.URLParam(r, "sessionID"))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chats.Transcript(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chats.SendUserMessage(chi.URLParam(r, "sessionID"), payload.Message)
	if err != nil {
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
	utils.RespondJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := h.chats.ClearMessages(chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) handleAddAttachments(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Files []chatmodel.Attachment `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload.Files) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "files is required")
		return
	}

	if err := h.chats.AddAttachments(chi.URLParam(r, "sessionID"), payload.Files); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"status": "attached"})
}

func (h *Handler) handleRemoveAttachment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid attachment index")
		return
	}

	h.chats.RemoveAttachment(chi.URLParam(r, "sessionID"), index)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
