package conversation

import "context"

// ConversationRepository resolves and mutates conversation rows.
type ConversationRepository interface {
	// FindOrCreateByLead resolves the lead's conversation, creating it with
	// status "active" when absent. One conversation per lead.
	FindOrCreateByLead(ctx context.Context, leadID string) (*Conversation, error)
	GetByLeadID(ctx context.Context, leadID string) (*Conversation, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// MessageRepository persists and lists conversation turns.
type MessageRepository interface {
	// InsertInbound stores an inbound message. It returns false without error
	// when the provider message id was already stored (webhook redelivery).
	InsertInbound(ctx context.Context, msg *Message) (bool, error)
	InsertOutbound(ctx context.Context, msg *Message) error
	// ListByConversation returns all messages oldest-first.
	ListByConversation(ctx context.Context, conversationID string) ([]Message, error)
}

// LLMClient is the boundary contract with the intent & response generator.
type LLMClient interface {
	// Classify returns a lower-cased single-token intent label. Transport
	// errors degrade to "other" inside the adapter, so callers treat any
	// returned error as unexpected.
	Classify(ctx context.Context, text string) (string, error)
	// Complete generates a free-form reply from the system persona prompt,
	// a bounded history window, and the current text. Errors propagate.
	Complete(ctx context.Context, text string, history []ChatMessage) (string, error)
}
