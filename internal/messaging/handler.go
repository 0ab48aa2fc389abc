package messaging

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/leadflow-ai/leadflow/internal/conversation"
	"github.com/leadflow-ai/leadflow/internal/observability/metrics"
	"github.com/leadflow-ai/leadflow/pkg/logging"
)

const twilioErrorReply = "Sorry, we encountered an error processing your message."

type inboundPublisher interface {
	EnqueueInbound(ctx context.Context, event conversation.InboundEvent) error
}

type pipelineProcessor interface {
	ProcessIncomingMessage(ctx context.Context, event conversation.InboundEvent) (*conversation.Result, error)
}

type textSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Handler handles webhook and send requests for both transports.
type Handler struct {
	verifyToken     string
	twilioAuthToken string
	publisher       inboundPublisher
	processor       pipelineProcessor
	sender          textSender
	metrics         *metrics.PipelineMetrics
	logger          *logging.Logger
}

// NewHandler creates a new messaging handler. The WhatsApp webhook enqueues
// events for async processing; the Twilio webhook runs the pipeline inline
// because the reply travels back in the TwiML response.
func NewHandler(verifyToken, twilioAuthToken string, publisher inboundPublisher, processor pipelineProcessor, sender textSender, m *metrics.PipelineMetrics, logger *logging.Logger) *Handler {
	if publisher == nil {
		panic("messaging: publisher cannot be nil")
	}
	if processor == nil {
		panic("messaging: processor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		verifyToken:     verifyToken,
		twilioAuthToken: twilioAuthToken,
		publisher:       publisher,
		processor:       processor,
		sender:          sender,
		metrics:         m,
		logger:          logger,
	}
}

// HealthCheck handles GET /health requests.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// WhatsAppVerify handles the GET webhook verification handshake from Meta:
// echo hub.challenge iff hub.mode is "subscribe" and the token matches.
func (h *Handler) WhatsAppVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.logger.Info("whatsapp webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// WhatsAppWebhook handles POST webhook deliveries from the Cloud API.
// The provider expects a fast 200 regardless of processing outcome, so
// messages are enqueued and the response never reports internal failures.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("failed to decode whatsapp webhook", "error", err)
		h.metrics.ObserveInbound(string(conversation.ChannelWhatsApp), "malformed")
		h.writeAck(w)
		return
	}

	if payload.Object != whatsAppBusinessObject {
		h.metrics.ObserveInbound(string(conversation.ChannelWhatsApp), "ignored")
		h.writeAck(w)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, raw := range change.Value.Messages {
				h.enqueueWhatsAppMessage(r.Context(), raw)
			}
		}
	}

	h.writeAck(w)
}

func (h *Handler) enqueueWhatsAppMessage(ctx context.Context, raw json.RawMessage) {
	var msg conversation.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn("failed to decode whatsapp message", "error", err)
		h.metrics.ObserveInbound(string(conversation.ChannelWhatsApp), "malformed")
		return
	}

	sender := sanitizePhone(msg.From)
	if sender == "" {
		h.logger.Warn("whatsapp message without sender", "message_id", msg.ID)
		h.metrics.ObserveInbound(string(conversation.ChannelWhatsApp), "invalid")
		return
	}

	// Raw carries the provider bytes verbatim; for media and other non-text
	// messages it is the only record of what was sent.
	event := conversation.InboundEvent{
		Channel: conversation.ChannelWhatsApp,
		Sender:  sender,
		Message: msg,
		Raw:     raw,
	}

	publishCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := h.publisher.EnqueueInbound(publishCtx, event); err != nil {
		// Fast-ack contract: log and report via metrics, never fail the webhook.
		h.logger.Error("failed to enqueue whatsapp message", "error", err, "message_id", msg.ID)
		h.metrics.ObserveInbound(string(conversation.ChannelWhatsApp), "enqueue_failed")
		return
	}
	h.metrics.ObserveInbound(string(conversation.ChannelWhatsApp), "accepted")
}

func (h *Handler) writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// TwilioWebhook handles POST webhook deliveries from Twilio. The pipeline
// runs inline and the reply is returned in the TwiML envelope; Twilio does
// the actual delivery.
func (h *Handler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	if h.twilioAuthToken != "" {
		if !ValidateTwilioSignature(r, h.twilioAuthToken, buildAbsoluteURL(r)) {
			h.logger.Warn("invalid twilio signature")
			h.metrics.ObserveInbound(string(conversation.ChannelSMS), "forbidden")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	webhook, err := ParseTwilioWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if webhook.From == "" || webhook.Body == "" {
		h.metrics.ObserveInbound(string(conversation.ChannelSMS), "invalid")
		http.Error(w, "Missing parameters: From or Body", http.StatusBadRequest)
		return
	}

	channel, sender := SplitSenderAddress(webhook.From)
	event := conversation.InboundEvent{
		Channel: channel,
		Sender:  sender,
		Message: conversation.InboundMessage{
			ID:        webhook.MessageSid,
			From:      sender,
			Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
			Type:      "text",
			Text:      &conversation.ReplyContent{Body: webhook.Body},
		},
	}

	result, err := h.processor.ProcessIncomingMessage(r.Context(), event)
	switch {
	case errors.Is(err, conversation.ErrDuplicateDelivery):
		h.metrics.ObserveInbound(string(channel), "duplicate")
		h.writeTwiML(w, http.StatusOK, twimlResponse{})
		return
	case err != nil:
		h.logger.Error("twilio pipeline failed", "error", err, "message_sid", webhook.MessageSid)
		h.metrics.ObserveInbound(string(channel), "error")
		h.writeTwiML(w, http.StatusInternalServerError, twimlResponse{Message: twilioErrorReply})
		return
	}

	h.metrics.ObserveInbound(string(channel), "accepted")
	h.writeTwiML(w, http.StatusOK, twimlResponse{Message: result.ReplyText})
}

func (h *Handler) writeTwiML(w http.ResponseWriter, status int, resp twimlResponse) {
	body, err := xml.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	w.Write([]byte(xml.Header))
	w.Write(body)
}

// SendRequest is the body for POST /api/whatsapp/send.
type SendRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// SendMessage handles POST /api/whatsapp/send requests.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" || strings.TrimSpace(req.Message) == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": "Phone number and message are required",
			"required_format": map[string]string{
				"phoneNumber": "31612345678",
				"message":     "Your message here",
			},
		})
		return
	}
	if h.sender == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "WhatsApp sender not configured")
		return
	}

	// Strip spaces and a leading "+" before dispatch.
	to := sanitizePhone(req.PhoneNumber)
	messageID, err := h.sender.SendText(r.Context(), to, req.Message)
	if err != nil {
		h.logger.Error("failed to send message", "error", err, "to", to)
		h.metrics.ObserveOutbound(string(conversation.ChannelWhatsApp), "error")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "Failed to send message",
			"details": err.Error(),
		})
		return
	}

	h.metrics.ObserveOutbound(string(conversation.ChannelWhatsApp), "sent")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"to":         to,
		"message_id": messageID,
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func buildAbsoluteURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil && !strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.RequestURI())
}
