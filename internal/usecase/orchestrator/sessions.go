package orchestrator

import (
	"context"
	"errors"

	"intent-orchestrator/internal/domain/conversation"
	appErrors "intent-orchestrator/pkg/errors"
)

func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	messages, err := s.history.List(ctx, s.session(sessionID), limit)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeStoreUnavailable, "Failed to load history", err)
	}
	return messages, nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.history.Clear(ctx, s.session(sessionID)); err != nil {
		return appErrors.NewAppError(appErrors.CodeStoreUnavailable, "Failed to clear history", err)
	}
	return nil
}

func (s *Service) Sessions(ctx context.Context) ([]conversation.SessionInfo, error) {
	sessions, err := s.history.Sessions(ctx)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeStoreUnavailable, "Failed to list sessions", err)
	}
	return sessions, nil
}

func (s *Service) Stats(ctx context.Context, sessionID string) (*conversation.Stats, error) {
	stats, err := s.history.Stats(ctx, s.session(sessionID))
	if errors.Is(err, conversation.ErrSessionNotFound) {
		return nil, appErrors.NewAppError(appErrors.CodeSessionNotFound, "Session not found", err)
	}
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeStoreUnavailable, "Failed to load session stats", err)
	}
	return stats, nil
}
