package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restodesk/api/internal/chat"
)

// ChatAssistant answers staff questions.
// Satisfied by *chat.Assistant.
type ChatAssistant interface {
	Reply(ctx context.Context, restaurantID uuid.UUID, req chat.Request) (string, error)
}

// ChatHandler proxies questions to the AI assistant.
type ChatHandler struct {
	assistant ChatAssistant
}

// NewChatHandler creates a new ChatHandler. assistant may be nil when no
// LLM is configured.
func NewChatHandler(assistant ChatAssistant) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

// RegisterRoutes registers the chat endpoint.
// Expected to be mounted at /restaurants/{rid}/chat
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Ask)
}

// --- Request / Response types ---

type chatRequest struct {
	Message interface{} `json:"message"`
	Section string      `json:"section"`
	Context string      `json:"context"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// --- Handlers ---

// Ask handles POST /restaurants/{rid}/chat. A handler built without an
// assistant answers 503.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "chat assistant is not configured"})
		return
	}

	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	message, ok := req.Message.(string)
	if !ok || message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message field (string) is required"})
		return
	}

	text, err := h.assistant.Reply(r.Context(), restaurantID, chat.Request{
		Message: message,
		Section: req.Section,
		Context: req.Context,
	})
	if err != nil {
		log.Printf("ERROR: chat: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "AI_ERROR",
			"message": "Something went wrong while talking to the AI.",
		})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: text})
}
