package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow-ai/leadflow/internal/leads"
)

type fakeLeadRepo struct {
	byPhone map[string]*leads.Lead
	created int
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{byPhone: make(map[string]*leads.Lead)}
}

func (f *fakeLeadRepo) FindOrCreateByPhone(_ context.Context, phone string) (*leads.Lead, error) {
	if phone == "" {
		return nil, leads.ErrMissingPhone
	}
	if lead, ok := f.byPhone[phone]; ok {
		return lead, nil
	}
	f.created++
	lead := &leads.Lead{ID: uuid.NewString(), PhoneNumber: phone, Status: leads.StatusNew}
	f.byPhone[phone] = lead
	return lead, nil
}

func (f *fakeLeadRepo) GetByID(_ context.Context, id string) (*leads.Lead, error) {
	for _, lead := range f.byPhone {
		if lead.ID == id {
			return lead, nil
		}
	}
	return nil, leads.ErrLeadNotFound
}

func (f *fakeLeadRepo) UpdateStatus(_ context.Context, id, status string) error {
	lead, err := f.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	lead.Status = status
	return nil
}

type fakeStore struct {
	byLead  map[string]*Conversation
	turns   map[string][]Message
	seenIDs map[string]bool
	created int

	insertInboundErr  error
	insertOutboundErr error
	listErr           error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byLead:  make(map[string]*Conversation),
		turns:   make(map[string][]Message),
		seenIDs: make(map[string]bool),
	}
}

func (f *fakeStore) FindOrCreateByLead(_ context.Context, leadID string) (*Conversation, error) {
	if conv, ok := f.byLead[leadID]; ok {
		return conv, nil
	}
	f.created++
	conv := &Conversation{ID: uuid.NewString(), LeadID: leadID, Status: StatusActive}
	f.byLead[leadID] = conv
	return conv, nil
}

func (f *fakeStore) GetByLeadID(_ context.Context, leadID string) (*Conversation, error) {
	if conv, ok := f.byLead[leadID]; ok {
		return conv, nil
	}
	return nil, ErrConversationNotFound
}

func (f *fakeStore) UpdateStatus(_ context.Context, id, status string) error {
	for _, conv := range f.byLead {
		if conv.ID == id {
			conv.Status = status
			return nil
		}
	}
	return ErrConversationNotFound
}

func (f *fakeStore) InsertInbound(_ context.Context, msg *Message) (bool, error) {
	if f.insertInboundErr != nil {
		return false, f.insertInboundErr
	}
	if msg.ProviderMessageID != "" && f.seenIDs[msg.ProviderMessageID] {
		return false, nil
	}
	f.seenIDs[msg.ProviderMessageID] = true
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Direction = DirectionInbound
	f.turns[msg.ConversationID] = append(f.turns[msg.ConversationID], *msg)
	return true, nil
}

func (f *fakeStore) InsertOutbound(_ context.Context, msg *Message) error {
	if f.insertOutboundErr != nil {
		return f.insertOutboundErr
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Direction = DirectionOutbound
	f.turns[msg.ConversationID] = append(f.turns[msg.ConversationID], *msg)
	return nil
}

func (f *fakeStore) ListByConversation(_ context.Context, conversationID string) ([]Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.turns[conversationID], nil
}

type fakeLLM struct {
	intent      string
	classifyErr error

	reply       string
	completeErr error

	classifyCalls int
	completeCalls int
	lastHistory   []ChatMessage
	lastText      string
}

func (f *fakeLLM) Classify(_ context.Context, text string) (string, error) {
	f.classifyCalls++
	if f.classifyErr != nil {
		return "", f.classifyErr
	}
	if f.intent == "" {
		return IntentOther, nil
	}
	return f.intent, nil
}

func (f *fakeLLM) Complete(_ context.Context, text string, history []ChatMessage) (string, error) {
	f.completeCalls++
	f.lastText = text
	f.lastHistory = history
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.reply, nil
}

func textEvent(id, sender, body string) InboundEvent {
	return InboundEvent{
		Channel: ChannelWhatsApp,
		Sender:  sender,
		Message: InboundMessage{
			ID:   id,
			From: sender,
			Type: "text",
			Text: &ReplyContent{Body: body},
		},
	}
}

func TestProcessIncomingMessageGreeting(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	store := newFakeStore()
	llm := &fakeLLM{intent: IntentGreeting, reply: "Hallo! Waarmee kan ik u helpen?"}
	orch := NewOrchestrator(leadRepo, store, store, llm, nil)

	result, err := orch.ProcessIncomingMessage(context.Background(), textEvent("wamid.1", "31612345678", "Hoi"))
	require.NoError(t, err)

	assert.Equal(t, "Hallo! Waarmee kan ik u helpen?", result.ReplyText)
	assert.Equal(t, IntentGreeting, result.Intent)
	assert.Equal(t, 1, leadRepo.created)
	assert.Equal(t, 1, store.created)

	turns := store.turns[result.ConversationID]
	require.Len(t, turns, 2)
	assert.Equal(t, DirectionInbound, turns[0].Direction)
	assert.Equal(t, "Hoi", turns[0].Content)
	assert.Equal(t, DirectionOutbound, turns[1].Direction)
	assert.Equal(t, "Hallo! Waarmee kan ik u helpen?", turns[1].Content)

	var meta outboundMetadata
	require.NoError(t, json.Unmarshal(turns[1].Metadata, &meta))
	assert.Equal(t, IntentGreeting, meta.Intent)
	assert.True(t, meta.AIGenerated)
}

func TestProcessIncomingMessageReusesLeadAndConversation(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	store := newFakeStore()
	llm := &fakeLLM{intent: IntentQuestion, reply: "antwoord"}
	orch := NewOrchestrator(leadRepo, store, store, llm, nil)

	first, err := orch.ProcessIncomingMessage(context.Background(), textEvent("wamid.1", "31612345678", "eerste"))
	require.NoError(t, err)
	second, err := orch.ProcessIncomingMessage(context.Background(), textEvent("wamid.2", "31612345678", "tweede"))
	require.NoError(t, err)

	assert.Equal(t, first.LeadID, second.LeadID)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, 1, leadRepo.created)
	assert.Equal(t, 1, store.created)
}

func TestProcessIncomingMessageHumanAgentRequest(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	store := newFakeStore()
	llm := &fakeLLM{intent: IntentHumanAgentRequest}
	orch := NewOrchestrator(leadRepo, store, store, llm, nil)

	result, err := orch.ProcessIncomingMessage(context.Background(), textEvent("wamid.1", "31612345678", "Ik wil een medewerker spreken"))
	require.NoError(t, err)

	assert.Equal(t, HandoffReply, result.ReplyText)
	assert.Equal(t, 0, llm.completeCalls)

	conv, err := store.GetByLeadID(context.Background(), result.LeadID)
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsHumanAttention, conv.Status)

	turns := store.turns[result.ConversationID]
	require.Len(t, turns, 2)
	var meta outboundMetadata
	require.NoError(t, json.Unmarshal(turns[1].Metadata, &meta))
	assert.Equal(t, IntentHumanAgentRequest, meta.Intent)
	assert.False(t, meta.AIGenerated)
}

func TestProcessIncomingMessageClassificationFailsOpen(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	store := newFakeStore()
	llm := &fakeLLM{classifyErr: errors.New("classifier down"), reply: "toch een antwoord"}
	orch := NewOrchestrator(leadRepo, store, store, llm, nil)

	result, err := orch.ProcessIncomingMessage(context.Background(), textEvent("wamid.1", "31612345678", "iets"))
	require.NoError(t, err)

	assert.Equal(t, IntentOther, result.Intent)
	assert.Equal(t, "toch een antwoord", result.ReplyText)
	assert.Equal(t, 1, llm.completeCalls)
}

func TestProcessIncomingMessageCompletionFailureIsFatal(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	store := newFakeStore()
	llm := &fakeLLM{intent: IntentQuestion, completeErr: errors.New("model unavailable")}
	orch := NewOrchestrator(leadRepo, store, store, llm, nil)

	_, err := orch.ProcessIncomingMessage(context.Background(), textEvent("wamid.1", "31612345678", "vraag"))
	require.Error(t, err)

	// The inbound turn is kept; no outbound turn is written.
	for _, turns := range store.turns {
		require.Len(t, turns, 1)
		assert.Equal(t, DirectionInbound, turns[0].Direction)
	}
}

func TestProcessIncomingMessageDuplicateDelivery(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	store := newFakeStore()
	llm := &fakeLLM{intent: IntentGreeting, reply: "hallo"}
	orch := NewOrchestrator(leadRepo, store, store, llm, nil)

	_, err := orch.ProcessIncomingMessage(context.Background(), textEvent("wamid.1", "31612345678", "Hoi"))
	require.NoError(t, err)

	_, err = orch.ProcessIncomingMessage(context.Background(), textEvent("wamid.1", "31612345678", "Hoi"))
	assert.ErrorIs(t, err, ErrDuplicateDelivery)

	assert.Equal(t, 1, llm.classifyCalls)
	assert.Equal(t, 1, llm.completeCalls)
	for _, turns := range store.turns {
		assert.Len(t, turns, 2)
	}
}

func TestProcessIncomingMessageHistoryExcludesCurrentTurn(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	store := newFakeStore()
	llm := &fakeLLM{intent: IntentQuestion, reply: "antwoord"}
	orch := NewOrchestrator(leadRepo, store, store, llm, nil)

	for i := 0; i < 3; i++ {
		_, err := orch.ProcessIncomingMessage(context.Background(),
			textEvent(fmt.Sprintf("wamid.%d", i), "31612345678", fmt.Sprintf("vraag %d", i)))
		require.NoError(t, err)
	}

	// Third turn: history holds two prior user/assistant exchanges.
	require.Len(t, llm.lastHistory, 4)
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "vraag 0"}, llm.lastHistory[0])
	assert.Equal(t, ChatMessage{Role: ChatRoleAssistant, Content: "antwoord"}, llm.lastHistory[1])
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "vraag 1"}, llm.lastHistory[2])
	assert.Equal(t, "vraag 2", llm.lastText)
}

func TestProcessIncomingMessageNonTextPlaceholder(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	store := newFakeStore()
	llm := &fakeLLM{intent: IntentOther, reply: "ok"}
	orch := NewOrchestrator(leadRepo, store, store, llm, nil)

	event := InboundEvent{
		Channel: ChannelWhatsApp,
		Sender:  "31612345678",
		Message: InboundMessage{ID: "wamid.img", From: "31612345678", Type: "image"},
	}
	result, err := orch.ProcessIncomingMessage(context.Background(), event)
	require.NoError(t, err)

	turns := store.turns[result.ConversationID]
	require.NotEmpty(t, turns)
	assert.Equal(t, NonTextPlaceholder, turns[0].Content)
	assert.Equal(t, "image", turns[0].MessageType)
}

func TestProcessIncomingMessageLeadFailurePropagates(t *testing.T) {
	leadRepo := newFakeLeadRepo()
	store := newFakeStore()
	llm := &fakeLLM{}
	orch := NewOrchestrator(leadRepo, store, store, llm, nil)

	_, err := orch.ProcessIncomingMessage(context.Background(), textEvent("wamid.1", "", "Hoi"))
	assert.ErrorIs(t, err, leads.ErrMissingPhone)
	assert.Equal(t, 0, llm.classifyCalls)
}
