package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"intent-orchestrator/internal/domain/conversation"
	"intent-orchestrator/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
)

// MessageRepository implements conversation.Repository on Postgres.
type MessageRepository struct {
	db          *DB
	maxMessages int
}

// NewMessageRepository migrates the chat_messages table and returns the repository.
func NewMessageRepository(db *DB, maxMessages int) (*MessageRepository, error) {
	if err := db.AutoMigrate(&models.MessageModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chat_messages: %w", err)
	}
	return &MessageRepository{db: db, maxMessages: maxMessages}, nil
}

func (r *MessageRepository) Append(ctx context.Context, msg *conversation.Message) error {
	if msg.SessionID == "" {
		return conversation.ErrEmptySessionID
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	dbModel, err := toMessageModel(msg)
	if err != nil {
		return err
	}

	tx := r.db.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	if err := tx.Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	if r.maxMessages > 0 {
		keep := tx.Model(&models.MessageModel{}).
			Select("id").
			Where("session_id = ?", msg.SessionID).
			Order("timestamp DESC, created_at DESC").
			Limit(r.maxMessages)
		if err := tx.Where("session_id = ? AND id NOT IN (?)", msg.SessionID, keep).
			Delete(&models.MessageModel{}).Error; err != nil {
			return fmt.Errorf("failed to trim session history: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}

	msg.ID = dbModel.ID.String()
	return nil
}

func (r *MessageRepository) List(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error) {
	var dbModels []models.MessageModel
	db := r.db.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC, created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]conversation.Message, 0, len(dbModels))
	for i := len(dbModels) - 1; i >= 0; i-- {
		m, err := toMessageEntity(&dbModels[i])
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, nil
}

func (r *MessageRepository) Clear(ctx context.Context, sessionID string) error {
	if err := r.db.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.MessageModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *MessageRepository) Sessions(ctx context.Context) ([]conversation.SessionInfo, error) {
	sessions := []conversation.SessionInfo{}
	err := r.db.DB.WithContext(ctx).
		Model(&models.MessageModel{}).
		Select("session_id, COUNT(*) AS message_count, MAX(timestamp) AS last_activity").
		Group("session_id").
		Order("last_activity DESC").
		Scan(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (r *MessageRepository) Stats(ctx context.Context, sessionID string) (*conversation.Stats, error) {
	type statsRow struct {
		Total     int
		Users     int
		Assistant int
		First     *time.Time
		Last      *time.Time
	}
	var row statsRow
	err := r.db.DB.WithContext(ctx).
		Model(&models.MessageModel{}).
		Select(`COUNT(*) AS total,
				COUNT(*) FILTER (WHERE message_type = 'user') AS users,
				COUNT(*) FILTER (WHERE message_type = 'assistant') AS assistant,
				MIN(timestamp) AS first,
				MAX(timestamp) AS last`).
		Where("session_id = ?", sessionID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute session stats: %w", err)
	}
	if row.Total == 0 {
		return nil, conversation.ErrSessionNotFound
	}

	return &conversation.Stats{
		SessionID:         sessionID,
		TotalMessages:     row.Total,
		UserMessages:      row.Users,
		AssistantMessages: row.Assistant,
		FirstMessage:      row.First,
		LastMessage:       row.Last,
	}, nil
}

// Close is a no-op; the DB handle is owned by the caller.
func (r *MessageRepository) Close() error {
	return nil
}

func toMessageModel(m *conversation.Message) (*models.MessageModel, error) {
	dbModel := &models.MessageModel{
		SessionID:   m.SessionID,
		MessageType: string(m.Role),
		Content:     m.Content,
		Timestamp:   m.Timestamp.UTC(),
	}
	if m.ID != "" {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid message id %q: %w", m.ID, err)
		}
		dbModel.ID = id
	} else {
		dbModel.ID = uuid.New()
	}
	if len(m.Metadata) > 0 {
		raw, err := json.Marshal(m.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode message metadata: %w", err)
		}
		s := string(raw)
		dbModel.AdditionalKwargs = &s
	}
	return dbModel, nil
}

func toMessageEntity(m *models.MessageModel) (*conversation.Message, error) {
	msg := &conversation.Message{
		ID:        m.ID.String(),
		SessionID: m.SessionID,
		Role:      conversation.Role(m.MessageType),
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC(),
	}
	if m.AdditionalKwargs != nil && *m.AdditionalKwargs != "" {
		if err := json.Unmarshal([]byte(*m.AdditionalKwargs), &msg.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode message metadata: %w", err)
		}
	}
	return msg, nil
}
