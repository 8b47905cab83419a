package handler

import (
	"context"
	"net/http"
	"strconv"

	"intent-orchestrator/internal/domain/health"
	"intent-orchestrator/internal/usecase/troubleshoot"
	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Troubleshooter is the troubleshooting surface the handler serves.
// *troubleshoot.Service satisfies it.
type Troubleshooter interface {
	TroubleshootDevice(ctx context.Context, req *troubleshoot.TroubleshootDeviceRequest) (*health.TroubleshootReport, error)
	CheckAllDevices(ctx context.Context, req *troubleshoot.CheckAllDevicesRequest) (*health.FleetReport, error)
	Process(ctx context.Context, operation string, params map[string]any) (any, error)
}

type TroubleshootHandler struct {
	service Troubleshooter
}

func NewTroubleshootHandler(service Troubleshooter) *TroubleshootHandler {
	return &TroubleshootHandler{service: service}
}

func (h *TroubleshootHandler) RegisterRoutes(router *gin.RouterGroup) {
	ts := router.Group("/troubleshoot")
	{
		ts.GET("/devices/:criteria", h.TroubleshootDevice)
		ts.GET("/fleet", h.CheckFleet)
		ts.POST("/:operation", h.RunOperation)
	}
}

func (h *TroubleshootHandler) TroubleshootDevice(c *gin.Context) {
	req := &troubleshoot.TroubleshootDeviceRequest{
		DeviceCriteria: c.Param("criteria"),
		StreamID:       c.Query("stream_id"),
	}

	report, err := h.service.TroubleshootDevice(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Troubleshooting completed", report)
}

func (h *TroubleshootHandler) CheckFleet(c *gin.Context) {
	req := &troubleshoot.CheckAllDevicesRequest{StreamID: c.Query("stream_id")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, appErrors.NewAppError(appErrors.CodeInvalidArgument, "limit must be an integer", err))
			return
		}
		req.Limit = limit
	}

	report, err := h.service.CheckAllDevices(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Fleet check completed", report)
}

// RunOperation takes the JSON body as the operation's parameters.
func (h *TroubleshootHandler) RunOperation(c *gin.Context) {
	params := map[string]any{}
	if err := bindOptionalJSON(c, &params); err != nil {
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, appErrors.CodeInvalidArgument, "Invalid request body")
		return
	}

	result, err := h.service.Process(c.Request.Context(), c.Param("operation"), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Operation completed", result)
}
