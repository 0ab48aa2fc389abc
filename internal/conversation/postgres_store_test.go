package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, newPostgresStoreWithQuerier(mock)
}

func TestFindOrCreateByLead(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(pgxmock.AnyArg(), "lead-1", StatusActive).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id, lead_id, status, created_at, updated_at").
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lead_id", "status", "created_at", "updated_at"}).
			AddRow("conv-1", "lead-1", StatusActive, now, now))

	conv, err := store.FindOrCreateByLead(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conv.ID != "conv-1" || conv.Status != StatusActive {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindOrCreateByLead_ExistingRowWins(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(pgxmock.AnyArg(), "lead-1", StatusActive).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT id, lead_id, status, created_at, updated_at").
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lead_id", "status", "created_at", "updated_at"}).
			AddRow("conv-existing", "lead-1", StatusNeedsHumanAttention, now, now))

	conv, err := store.FindOrCreateByLead(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conv.ID != "conv-existing" {
		t.Fatalf("expected existing conversation, got %+v", conv)
	}
}

func TestGetByLeadID_NotFound(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT id, lead_id, status, created_at, updated_at").
		WithArgs("lead-unknown").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lead_id", "status", "created_at", "updated_at"}))

	if _, err := store.GetByLeadID(context.Background(), "lead-unknown"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("UPDATE conversations SET status").
		WithArgs(StatusNeedsHumanAttention, pgxmock.AnyArg(), "conv-unknown").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.UpdateStatus(context.Background(), "conv-unknown", StatusNeedsHumanAttention); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestInsertInbound(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), "conv-1", "Hoi", DirectionInbound, "text",
			pgxmock.AnyArg(), "wamid.1", false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	msg := &Message{ConversationID: "conv-1", Content: "Hoi", MessageType: "text", ProviderMessageID: "wamid.1"}
	inserted, err := store.InsertInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Fatal("expected insert to report a new row")
	}
	if msg.ID == "" {
		t.Fatal("expected a generated message id")
	}
	if msg.Direction != DirectionInbound {
		t.Fatalf("unexpected direction %q", msg.Direction)
	}
}

func TestInsertInbound_DuplicateIsNoOp(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), "conv-1", "Hoi", DirectionInbound, "text",
			pgxmock.AnyArg(), "wamid.1", false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	msg := &Message{ConversationID: "conv-1", Content: "Hoi", MessageType: "text", ProviderMessageID: "wamid.1"}
	inserted, err := store.InsertInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Fatal("expected redelivery to be a no-op")
	}
}

func TestInsertOutbound_MarksRead(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), "conv-1", "Hallo!", DirectionOutbound, "text",
			pgxmock.AnyArg(), "", true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	meta, _ := json.Marshal(outboundMetadata{Intent: IntentGreeting, AIGenerated: true})
	msg := &Message{ConversationID: "conv-1", Content: "Hallo!", MessageType: "text", Metadata: meta}
	if err := store.InsertOutbound(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !msg.IsRead || msg.ReadAt == nil {
		t.Fatalf("expected outbound turn to be marked read: %+v", msg)
	}
}

func TestListByConversation(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Now()

	cols := []string{"id", "conversation_id", "content", "direction", "message_type", "metadata", "provider_message_id", "is_read", "created_at", "read_at"}
	mock.ExpectQuery("SELECT id, conversation_id, content").
		WithArgs("conv-1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("msg-1", "conv-1", "Hoi", DirectionInbound, "text", json.RawMessage(`{}`), "wamid.1", false, now, nil).
			AddRow("msg-2", "conv-1", "Hallo!", DirectionOutbound, "text", json.RawMessage(`{}`), "", true, now, &now))

	messages, err := store.ListByConversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "Hoi" || messages[1].Content != "Hallo!" {
		t.Fatalf("unexpected order: %+v", messages)
	}
}
