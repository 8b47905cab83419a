package handler

import (
	"errors"
	"net/http"

	"intent-orchestrator/internal/logger"
	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByCode = map[string]int{
	appErrors.CodeValidation:           http.StatusBadRequest,
	appErrors.CodeInvalidArgument:      http.StatusBadRequest,
	appErrors.CodeUnsupportedOperation: http.StatusBadRequest,
	appErrors.CodeConfiguration:        http.StatusInternalServerError,
	appErrors.CodeDirectoryUnavailable: http.StatusBadGateway,
	appErrors.CodeStoreUnavailable:     http.StatusBadGateway,
	appErrors.CodeLLMUnavailable:       http.StatusBadGateway,
	appErrors.CodeToolNotFound:         http.StatusNotFound,
	appErrors.CodeSessionNotFound:      http.StatusNotFound,
	appErrors.CodeUnauthorized:         http.StatusUnauthorized,
	appErrors.CodeInternal:             http.StatusInternalServerError,
}

// StatusFor maps an error's AppError code to an HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[appErrors.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	code := appErrors.CodeOf(err)

	message := err.Error()
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) && status >= http.StatusInternalServerError {
		// keep backend details out of 5xx bodies
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	utils.ErrorResponseWithCode(c, status, code, message)
}

func bindOptionalJSON(c *gin.Context, out any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(out)
}
