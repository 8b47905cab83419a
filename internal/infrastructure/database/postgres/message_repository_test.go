package postgres

import (
	"testing"
	"time"

	"intent-orchestrator/internal/domain/conversation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageModelRoundTrip(t *testing.T) {
	ts := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	msg := &conversation.Message{
		SessionID: "s1",
		Role:      conversation.RoleAssistant,
		Content:   "All devices healthy",
		Metadata:  map[string]any{"tool": "sal_troubleshoot"},
		Timestamp: ts,
	}

	dbModel, err := toMessageModel(msg)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, dbModel.ID)
	assert.Equal(t, "assistant", dbModel.MessageType)
	require.NotNil(t, dbModel.AdditionalKwargs)

	back, err := toMessageEntity(dbModel)
	require.NoError(t, err)
	assert.Equal(t, dbModel.ID.String(), back.ID)
	assert.Equal(t, conversation.RoleAssistant, back.Role)
	assert.Equal(t, ts, back.Timestamp)
	assert.Equal(t, "sal_troubleshoot", back.Metadata["tool"])
}

func TestToMessageModelRejectsBadID(t *testing.T) {
	_, err := toMessageModel(&conversation.Message{ID: "not-a-uuid", SessionID: "s1"})
	assert.Error(t, err)
}

func TestToMessageModelWithoutMetadata(t *testing.T) {
	dbModel, err := toMessageModel(&conversation.Message{SessionID: "s1", Role: conversation.RoleUser})
	require.NoError(t, err)
	assert.Nil(t, dbModel.AdditionalKwargs)
}
