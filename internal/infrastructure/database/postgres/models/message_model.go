package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageModel represents the database model for chat messages
type MessageModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionID        string    `gorm:"type:varchar(255);not null;index:idx_chat_messages_session_ts,priority:1"`
	MessageType      string    `gorm:"type:varchar(20);not null"`
	Content          string    `gorm:"type:text;not null"`
	AdditionalKwargs *string   `gorm:"type:jsonb"`
	Timestamp        time.Time `gorm:"type:timestamptz;not null;index:idx_chat_messages_session_ts,priority:2"`
	CreatedAt        time.Time `gorm:"not null"`
}

func (MessageModel) TableName() string {
	return "chat_messages"
}
