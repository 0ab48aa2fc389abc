package conversation

import (
	"context"
	"encoding/json"
)

// Chat roles used when presenting history to the generator.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one {role, content} pair of generator history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Channel identifies which transport a message arrived on or leaves through.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// ReplyContent is the text body of an inbound message.
type ReplyContent struct {
	Body string `json:"body"`
}

// InteractiveReply carries a button or list selection.
type InteractiveReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// InteractiveContent represents a reply to an interactive message.
type InteractiveContent struct {
	Type        string            `json:"type"`
	ButtonReply *InteractiveReply `json:"button_reply,omitempty"`
	ListReply   *InteractiveReply `json:"list_reply,omitempty"`
}

// InboundMessage is the channel-neutral message envelope. Transport adapters
// normalize provider payloads into this shape before the pipeline runs.
type InboundMessage struct {
	ID          string              `json:"id,omitempty"`
	From        string              `json:"from,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Type        string              `json:"type"`
	Text        *ReplyContent       `json:"text,omitempty"`
	Interactive *InteractiveContent `json:"interactive,omitempty"`
}

// InboundEvent is one webhook delivery, tagged with its transport.
type InboundEvent struct {
	Channel Channel        `json:"channel"`
	Sender  string         `json:"sender"`
	Message InboundMessage `json:"message"`
	// Raw preserves the provider payload verbatim for message metadata.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// ProviderMessageID keys inbound messages for at-least-once dedup.
func (e InboundEvent) ProviderMessageID() string {
	return e.Message.ID
}

// Result is what the pipeline hands back to the delivering caller.
type Result struct {
	ReplyText      string `json:"reply_text"`
	LeadID         string `json:"lead_id"`
	ConversationID string `json:"conversation_id"`
	Intent         string `json:"intent"`
}

// OutboundReply is a reply ready for transport dispatch.
type OutboundReply struct {
	To      string
	Body    string
	Channel Channel
}

// ReplyMessenger sends a reply over the channel it is tagged with.
type ReplyMessenger interface {
	SendReply(ctx context.Context, msg OutboundReply) error
}
