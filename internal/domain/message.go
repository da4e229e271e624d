package domain

import "time"

// MaxMessageLength is the longest message content accepted, in characters.
const MaxMessageLength = 1000

// Message is a directed message between two users, optionally scoped to a
// product. IsRead is only meaningful to the receiver.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	ProductID  *int64    `json:"product_id,omitempty"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`

	// SenderUsername is filled by queries that join the sender.
	SenderUsername string `json:"sender_username,omitempty"`
}
