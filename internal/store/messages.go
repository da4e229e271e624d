package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"marketplace-service/internal/domain"
)

// collectMessages drains rows of (message columns, sender username).
func collectMessages(rows *sql.Rows, op string) ([]domain.Message, error) {
	defer rows.Close()
	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.ProductID, &m.Content, &m.IsRead, &m.CreatedAt,
			&m.SenderUsername,
		); err != nil {
			return nil, fmt.Errorf("store: %s failed to scan message row: %w", op, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %s iteration error: %w", op, err)
	}
	return messages, nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	query := `
		INSERT INTO marketplace.messages (sender_id, receiver_id, product_id, content, is_read)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, sender_id, receiver_id, product_id, content, is_read, created_at;
	`
	var created domain.Message
	err := s.q.QueryRowContext(ctx, query,
		message.SenderID, message.ReceiverID, message.ProductID, message.Content, message.IsRead,
	).Scan(
		&created.ID, &created.SenderID, &created.ReceiverID, &created.ProductID,
		&created.Content, &created.IsRead, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: CreateMessage failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) ListProductMessages(ctx context.Context, productID int64) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.sender_id, m.receiver_id, m.product_id, m.content, m.is_read, m.created_at, u.username
		FROM marketplace.messages m
		JOIN marketplace.users u ON u.id = m.sender_id
		WHERE m.product_id = $1
		ORDER BY m.created_at DESC, m.id DESC;
	`
	rows, err := s.q.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("store: ListProductMessages failed to query messages: %w", err)
	}
	return collectMessages(rows, "ListProductMessages")
}

func (s *PostgresStore) CountUnread(ctx context.Context, productID, receiverID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM marketplace.messages
		WHERE product_id = $1 AND receiver_id = $2 AND is_read = FALSE;
	`
	var count int
	if err := s.q.QueryRowContext(ctx, query, productID, receiverID).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: CountUnread failed to scan count: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListUserMessages(ctx context.Context, userID int64) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.sender_id, m.receiver_id, m.product_id, m.content, m.is_read, m.created_at, u.username
		FROM marketplace.messages m
		JOIN marketplace.users u ON u.id = m.sender_id
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		ORDER BY m.created_at DESC, m.id DESC;
	`
	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("store: ListUserMessages failed to query messages: %w", err)
	}
	return collectMessages(rows, "ListUserMessages")
}

func (s *PostgresStore) ListConversation(ctx context.Context, productID, userA, userB int64) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.sender_id, m.receiver_id, m.product_id, m.content, m.is_read, m.created_at, u.username
		FROM marketplace.messages m
		JOIN marketplace.users u ON u.id = m.sender_id
		WHERE m.product_id = $1
			AND ((m.sender_id = $2 AND m.receiver_id = $3) OR (m.sender_id = $3 AND m.receiver_id = $2))
		ORDER BY m.created_at ASC, m.id ASC;
	`
	rows, err := s.q.QueryContext(ctx, query, productID, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("store: ListConversation failed to query messages: %w", err)
	}
	return collectMessages(rows, "ListConversation")
}

func (s *PostgresStore) MarkRead(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE marketplace.messages SET is_read = TRUE WHERE id = ANY($1) AND is_read = FALSE;`
	result, err := s.q.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("store: MarkRead failed to execute update: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: MarkRead failed to get rows affected: %w", err)
	}
	return n, nil
}
