package conversation

import (
	"encoding/json"
	"time"
)

// Conversation statuses.
const (
	StatusActive              = "active"
	StatusNeedsHumanAttention = "needs_human_attention"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Conversation is the message thread tied to one lead.
type Conversation struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one inbound or outbound turn, ordered by creation time.
type Message struct {
	ID                string          `json:"id"`
	ConversationID    string          `json:"conversation_id"`
	Content           string          `json:"content"`
	Direction         string          `json:"direction"`
	MessageType       string          `json:"message_type"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	ProviderMessageID string          `json:"provider_message_id,omitempty"`
	IsRead            bool            `json:"is_read"`
	CreatedAt         time.Time       `json:"created_at"`
	ReadAt            *time.Time      `json:"read_at,omitempty"`
}

// outboundMetadata is persisted alongside generated replies.
type outboundMetadata struct {
	Intent      string `json:"intent"`
	AIGenerated bool   `json:"ai_generated"`
}
