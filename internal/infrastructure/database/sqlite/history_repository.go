package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"intent-orchestrator/internal/domain/conversation"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	message_type TEXT NOT NULL,
	content TEXT NOT NULL,
	additional_kwargs TEXT,
	timestamp TEXT NOT NULL,
	created_at TEXT DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session_ts ON chat_messages(session_id, timestamp);
`

// fixed width so text ordering matches time ordering
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// HistoryRepository keeps chat messages in a local SQLite file.
type HistoryRepository struct {
	db          *sql.DB
	maxMessages int
}

// NewHistoryRepository opens or creates the database at path.
func NewHistoryRepository(path string, maxMessages int) (*HistoryRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// one writer keeps eviction and append ordered
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &HistoryRepository{db: db, maxMessages: maxMessages}, nil
}

func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

func (r *HistoryRepository) Ping() error {
	return r.db.Ping()
}

func (r *HistoryRepository) Append(ctx context.Context, msg *conversation.Message) error {
	if msg.SessionID == "" {
		return conversation.ErrEmptySessionID
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	var kwargs []byte
	if len(msg.Metadata) > 0 {
		var err error
		if kwargs, err = json.Marshal(msg.Metadata); err != nil {
			return fmt.Errorf("failed to encode message metadata: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, message_type, content, additional_kwargs, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SessionID, string(msg.Role), msg.Content, nullableText(kwargs), msg.Timestamp.UTC().Format(timestampLayout)); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if r.maxMessages > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM chat_messages
			WHERE session_id = ? AND seq NOT IN (
				SELECT seq FROM chat_messages WHERE session_id = ? ORDER BY seq DESC LIMIT ?
			)
		`, msg.SessionID, msg.SessionID, r.maxMessages); err != nil {
			return fmt.Errorf("failed to trim session history: %w", err)
		}
	}

	return tx.Commit()
}

func (r *HistoryRepository) List(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, message_type, content, additional_kwargs, timestamp FROM (
			SELECT seq, id, session_id, message_type, content, additional_kwargs, timestamp
			FROM chat_messages
			WHERE session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []conversation.Message{}
	for rows.Next() {
		var (
			m      conversation.Message
			role   string
			kwargs sql.NullString
			ts     string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &kwargs, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = conversation.Role(role)
		if m.Timestamp, err = time.Parse(timestampLayout, ts); err != nil {
			return nil, fmt.Errorf("failed to parse message timestamp %q: %w", ts, err)
		}
		if kwargs.Valid && kwargs.String != "" {
			if err := json.Unmarshal([]byte(kwargs.String), &m.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode message metadata: %w", err)
			}
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *HistoryRepository) Clear(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Sessions(ctx context.Context) ([]conversation.SessionInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MAX(timestamp)
		FROM chat_messages
		GROUP BY session_id
		ORDER BY MAX(timestamp) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []conversation.SessionInfo{}
	for rows.Next() {
		var (
			info conversation.SessionInfo
			last string
		)
		if err := rows.Scan(&info.SessionID, &info.MessageCount, &last); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if info.LastActivity, err = time.Parse(timestampLayout, last); err != nil {
			return nil, fmt.Errorf("failed to parse session activity %q: %w", last, err)
		}
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

func (r *HistoryRepository) Stats(ctx context.Context, sessionID string) (*conversation.Stats, error) {
	var (
		stats       = conversation.Stats{SessionID: sessionID}
		first, last sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN message_type = 'user' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN message_type = 'assistant' THEN 1 ELSE 0 END), 0),
			MIN(timestamp), MAX(timestamp)
		FROM chat_messages WHERE session_id = ?
	`, sessionID).Scan(&stats.TotalMessages, &stats.UserMessages, &stats.AssistantMessages, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to compute session stats: %w", err)
	}
	if stats.TotalMessages == 0 {
		return nil, conversation.ErrSessionNotFound
	}

	if stats.FirstMessage, err = parseNullable(first); err != nil {
		return nil, err
	}
	if stats.LastMessage, err = parseNullable(last); err != nil {
		return nil, err
	}
	return &stats, nil
}

func parseNullable(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timestampLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

func nullableText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
