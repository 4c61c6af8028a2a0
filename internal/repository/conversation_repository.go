package repository

import (
	"context"
	"time"

	"portfolio-advisor/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConversationRepository keeps an audit log of chat turns per (user,
// session) key. It is best-effort plumbing for observability; the advisor
// never reads it back to build prompts.
type ConversationRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewConversationRepository(pool PgxPool, tracer trace.Tracer) *ConversationRepository {
	return &ConversationRepository{pool: pool, tracer: tracer}
}

func (r *ConversationRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "conversation-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversation_messages (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_conversation_messages_key
			ON conversation_messages (user_id, session_id, created_at DESC);
	`)
	return err
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, userID, sessionID, role, content string) error {
	_, span := r.tracer.Start(ctx, "conversation-repo.append-message")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversation_messages (user_id, session_id, role, content)
		 VALUES ($1, $2, $3, $4)`,
		userID, sessionID, role, content,
	)
	return err
}

func (r *ConversationRepository) RecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]domain.ConversationMessage, error) {
	_, span := r.tracer.Start(ctx, "conversation-repo.recent-messages")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT role, content, created_at
		 FROM conversation_messages
		 WHERE user_id = $1 AND session_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.ConversationMessage
	for rows.Next() {
		var m domain.ConversationMessage
		var createdAt time.Time
		if err := rows.Scan(&m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = createdAt
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
