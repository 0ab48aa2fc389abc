package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists conversations and messages in the relational store.
// It implements both ConversationRepository and MessageRepository.
type PostgresStore struct {
	pool querier
}

// NewPostgresStore initializes the store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q querier) *PostgresStore {
	if q == nil {
		panic("conversation: querier required")
	}
	return &PostgresStore{pool: q}
}

var _ ConversationRepository = (*PostgresStore)(nil)
var _ MessageRepository = (*PostgresStore)(nil)

// FindOrCreateByLead upserts against the lead_id unique index and re-fetches,
// closing the find-then-create race.
func (s *PostgresStore) FindOrCreateByLead(ctx context.Context, leadID string) (*Conversation, error) {
	insert := `
		INSERT INTO conversations (id, lead_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, insert, uuid.New(), leadID, StatusActive); err != nil {
		return nil, fmt.Errorf("conversation: insert failed: %w", err)
	}
	return s.GetByLeadID(ctx, leadID)
}

// GetByLeadID fetches the lead's conversation.
func (s *PostgresStore) GetByLeadID(ctx context.Context, leadID string) (*Conversation, error) {
	query := `
		SELECT id, lead_id, status, created_at, updated_at
		FROM conversations
		WHERE lead_id = $1
	`
	var conv Conversation
	if err := s.pool.QueryRow(ctx, query, leadID).Scan(
		&conv.ID,
		&conv.LeadID,
		&conv.Status,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation: select failed: %w", err)
	}
	return &conv, nil
}

// UpdateStatus flips a conversation's status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id, status string) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE conversations SET status = $1, updated_at = $2 WHERE id = $3
	`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("conversation: update status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// InsertInbound stores an inbound turn. A redelivered provider message id hits
// the partial unique index and the insert becomes a no-op.
func (s *PostgresStore) InsertInbound(ctx context.Context, msg *Message) (bool, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.Direction = DirectionInbound
	msg.IsRead = false

	insert := `
		INSERT INTO messages (id, conversation_id, content, direction, message_type, metadata, provider_message_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider_message_id)
			WHERE provider_message_id IS NOT NULL AND provider_message_id <> ''
			DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, insert,
		msg.ID,
		msg.ConversationID,
		msg.Content,
		msg.Direction,
		msg.MessageType,
		metadataOrEmpty(msg.Metadata),
		msg.ProviderMessageID,
		msg.IsRead,
		msg.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("conversation: insert inbound message failed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// InsertOutbound stores a generated reply; outbound turns are read at creation.
func (s *PostgresStore) InsertOutbound(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.Direction = DirectionOutbound
	msg.IsRead = true
	if msg.ReadAt == nil {
		msg.ReadAt = &now
	}

	insert := `
		INSERT INTO messages (id, conversation_id, content, direction, message_type, metadata, provider_message_id, is_read, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := s.pool.Exec(ctx, insert,
		msg.ID,
		msg.ConversationID,
		msg.Content,
		msg.Direction,
		msg.MessageType,
		metadataOrEmpty(msg.Metadata),
		msg.ProviderMessageID,
		msg.IsRead,
		msg.CreatedAt,
		msg.ReadAt,
	); err != nil {
		return fmt.Errorf("conversation: insert outbound message failed: %w", err)
	}
	return nil
}

// ListByConversation returns every turn oldest-first; creation order is the
// conversation order the generator sees.
func (s *PostgresStore) ListByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	query := `
		SELECT id, conversation_id, content, direction, message_type, metadata, COALESCE(provider_message_id, ''), is_read, created_at, read_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation: list messages failed: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Content,
			&msg.Direction,
			&msg.MessageType,
			&msg.Metadata,
			&msg.ProviderMessageID,
			&msg.IsRead,
			&msg.CreatedAt,
			&msg.ReadAt,
		); err != nil {
			return nil, fmt.Errorf("conversation: scan message failed: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate messages failed: %w", err)
	}
	return messages, nil
}

func metadataOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
