package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leadflow-ai/leadflow/internal/leads"
	"github.com/leadflow-ai/leadflow/pkg/logging"
)

// Orchestrator drives the intake pipeline for one inbound message:
// resolve lead, resolve conversation, persist the inbound turn, classify,
// route, generate, persist the outbound turn.
type Orchestrator struct {
	leads  leads.Repository
	convs  ConversationRepository
	msgs   MessageRepository
	llm    LLMClient
	logger *logging.Logger
}

// NewOrchestrator wires the pipeline's collaborators.
func NewOrchestrator(leadsRepo leads.Repository, convs ConversationRepository, msgs MessageRepository, llm LLMClient, logger *logging.Logger) *Orchestrator {
	if leadsRepo == nil {
		panic("conversation: leads repository required")
	}
	if convs == nil || msgs == nil {
		panic("conversation: stores required")
	}
	if llm == nil {
		panic("conversation: llm client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		leads:  leadsRepo,
		convs:  convs,
		msgs:   msgs,
		llm:    llm,
		logger: logger,
	}
}

// ProcessIncomingMessage runs the full pipeline and returns the reply to send.
// Store failures propagate; a redelivered provider message id returns
// ErrDuplicateDelivery so the caller can skip the reply.
func (o *Orchestrator) ProcessIncomingMessage(ctx context.Context, event InboundEvent) (*Result, error) {
	lead, err := o.leads.FindOrCreateByPhone(ctx, event.Sender)
	if err != nil {
		return nil, fmt.Errorf("resolve lead: %w", err)
	}

	conv, err := o.convs.FindOrCreateByLead(ctx, lead.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	content := ExtractContent(event.Message)
	inbound := &Message{
		ConversationID:    conv.ID,
		Content:           content,
		MessageType:       messageType(event.Message),
		Metadata:          rawMetadata(event),
		ProviderMessageID: event.ProviderMessageID(),
	}
	inserted, err := o.msgs.InsertInbound(ctx, inbound)
	if err != nil {
		return nil, fmt.Errorf("persist inbound message: %w", err)
	}
	if !inserted {
		o.logger.Info("skipping redelivered message",
			"conversation_id", conv.ID,
			"provider_message_id", inbound.ProviderMessageID,
		)
		return nil, ErrDuplicateDelivery
	}

	intent, err := o.llm.Classify(ctx, content)
	if err != nil {
		// The adapter already fails open; treat anything that escapes it the same way.
		o.logger.Warn("intent classification failed", "error", err, "conversation_id", conv.ID)
		intent = IntentOther
	}

	var (
		replyText   string
		aiGenerated bool
	)
	if intent == IntentHumanAgentRequest {
		if err := o.convs.UpdateStatus(ctx, conv.ID, StatusNeedsHumanAttention); err != nil {
			return nil, fmt.Errorf("escalate conversation: %w", err)
		}
		replyText = HandoffReply
	} else {
		history, err := o.conversationHistory(ctx, conv.ID, inbound.ID)
		if err != nil {
			return nil, err
		}
		replyText, err = o.llm.Complete(ctx, content, history)
		if err != nil {
			return nil, fmt.Errorf("generate reply: %w", err)
		}
		aiGenerated = true
	}

	meta, _ := json.Marshal(outboundMetadata{Intent: intent, AIGenerated: aiGenerated})
	outbound := &Message{
		ConversationID: conv.ID,
		Content:        replyText,
		MessageType:    "text",
		Metadata:       meta,
	}
	if err := o.msgs.InsertOutbound(ctx, outbound); err != nil {
		return nil, fmt.Errorf("persist outbound message: %w", err)
	}

	o.logger.Info("processed inbound message",
		"lead_id", lead.ID,
		"conversation_id", conv.ID,
		"intent", intent,
		"ai_generated", aiGenerated,
	)

	return &Result{
		ReplyText:      replyText,
		LeadID:         lead.ID,
		ConversationID: conv.ID,
		Intent:         intent,
	}, nil
}

// conversationHistory maps prior turns to {role, content} pairs in creation
// order, excluding the just-persisted inbound turn.
func (o *Orchestrator) conversationHistory(ctx context.Context, conversationID, currentMessageID string) ([]ChatMessage, error) {
	messages, err := o.msgs.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	history := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.ID == currentMessageID {
			continue
		}
		role := ChatRoleAssistant
		if msg.Direction == DirectionInbound {
			role = ChatRoleUser
		}
		history = append(history, ChatMessage{Role: role, Content: msg.Content})
	}
	return history, nil
}

func messageType(msg InboundMessage) string {
	if msg.Type == "" {
		return "text"
	}
	return msg.Type
}

func rawMetadata(event InboundEvent) json.RawMessage {
	if len(event.Raw) > 0 {
		return event.Raw
	}
	raw, err := json.Marshal(event.Message)
	if err != nil {
		return nil
	}
	return raw
}
