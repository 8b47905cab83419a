package orchestrator

import (
	"context"

	"intent-orchestrator/internal/domain/tool"
	"intent-orchestrator/internal/logger"
	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"go.uber.org/zap"
)

func (s *Service) ListTools() []tool.Info {
	return s.registry.List()
}

// CallTool invokes a tool directly, bypassing intent classification.
func (s *Service) CallTool(ctx context.Context, req *CallToolRequest) (any, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid input", err)
	}

	result, err := s.registry.Call(ctx, req.Tool, req.Operation, req.Params)
	if err != nil {
		logger.Warn("Direct tool call failed",
			zap.String("tool", req.Tool),
			zap.String("operation", req.Operation),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}
