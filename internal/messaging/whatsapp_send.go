package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leadflow-ai/leadflow/internal/conversation"
	"github.com/leadflow-ai/leadflow/pkg/logging"
)

const graphAPIBaseURL = "https://graph.facebook.com"

// WhatsAppSender posts text messages through the WhatsApp Cloud API.
type WhatsAppSender struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	logger        *logging.Logger
}

// NewWhatsAppSender builds a sender with sane defaults.
func NewWhatsAppSender(accessToken, phoneNumberID, apiVersion string, logger *logging.Logger) *WhatsAppSender {
	if logger == nil {
		logger = logging.Default()
	}
	if apiVersion == "" {
		apiVersion = "v18.0"
	}
	return &WhatsAppSender{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		baseURL:       fmt.Sprintf("%s/%s", graphAPIBaseURL, apiVersion),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

var _ conversation.ReplyMessenger = (*WhatsAppSender)(nil)

type whatsAppTextBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type whatsAppSendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             whatsAppTextBody `json:"text"`
}

type whatsAppSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText dispatches one text message and returns the provider message id.
func (s *WhatsAppSender) SendText(ctx context.Context, to, body string) (string, error) {
	if s.accessToken == "" || s.phoneNumberID == "" {
		return "", errors.New("messaging: whatsapp credentials missing")
	}
	to = sanitizePhone(to)
	if to == "" {
		return "", errors.New("messaging: recipient required")
	}
	if strings.TrimSpace(body) == "" {
		return "", errors.New("messaging: body required")
	}

	payload, err := json.Marshal(whatsAppSendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             whatsAppTextBody{Body: body},
	})
	if err != nil {
		return "", fmt.Errorf("messaging: encode whatsapp payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("messaging: build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("messaging: whatsapp send failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("messaging: whatsapp send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed whatsAppSendResponse
	messageID := ""
	if err := json.Unmarshal(respBody, &parsed); err == nil && len(parsed.Messages) > 0 {
		messageID = parsed.Messages[0].ID
	}

	s.logger.Info("whatsapp message sent", "to", to, "message_id", messageID)
	return messageID, nil
}

// SendReply implements conversation.ReplyMessenger.
func (s *WhatsAppSender) SendReply(ctx context.Context, msg conversation.OutboundReply) error {
	_, err := s.SendText(ctx, msg.To, msg.Body)
	return err
}
