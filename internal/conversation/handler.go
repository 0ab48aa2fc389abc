package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadflow-ai/leadflow/internal/leads"
	"github.com/leadflow-ai/leadflow/pkg/logging"
)

// Handler serves conversation read endpoints.
type Handler struct {
	leads  leads.Repository
	convs  ConversationRepository
	msgs   MessageRepository
	logger *logging.Logger
}

// NewHandler creates the conversation HTTP handler.
func NewHandler(leadsRepo leads.Repository, convs ConversationRepository, msgs MessageRepository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		leads:  leadsRepo,
		convs:  convs,
		msgs:   msgs,
		logger: logger,
	}
}

// HistoryResponse is the payload for GET /api/leads/{leadID}/history.
type HistoryResponse struct {
	Lead         *leads.Lead   `json:"lead"`
	Conversation *Conversation `json:"conversation"`
	Messages     []Message     `json:"messages"`
}

// LeadHistory handles GET /api/leads/{leadID}/history requests.
// Messages are returned oldest-first.
func (h *Handler) LeadHistory(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	if leadID == "" {
		writeError(w, http.StatusBadRequest, "missing lead id")
		return
	}

	lead, err := h.leads.GetByID(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, leads.ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		h.logger.Error("failed to load lead", "error", err, "lead_id", leadID)
		writeError(w, http.StatusInternalServerError, "failed to load lead")
		return
	}

	resp := HistoryResponse{Lead: lead, Messages: []Message{}}

	conv, err := h.convs.GetByLeadID(r.Context(), leadID)
	if err != nil && !errors.Is(err, ErrConversationNotFound) {
		h.logger.Error("failed to load conversation", "error", err, "lead_id", leadID)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	if conv != nil {
		messages, err := h.msgs.ListByConversation(r.Context(), conv.ID)
		if err != nil {
			h.logger.Error("failed to load messages", "error", err, "conversation_id", conv.ID)
			writeError(w, http.StatusInternalServerError, "failed to load messages")
			return
		}
		resp.Conversation = conv
		if messages != nil {
			resp.Messages = messages
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
