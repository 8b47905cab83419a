package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/domain/conversation"
	"intent-orchestrator/internal/domain/health"
	"intent-orchestrator/internal/domain/tool"
	"intent-orchestrator/internal/middleware"
	"intent-orchestrator/internal/usecase/orchestrator"
	"intent-orchestrator/internal/usecase/troubleshoot"
	"intent-orchestrator/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTroubleshooter struct{}

func (stubTroubleshooter) TroubleshootDevice(context.Context, *troubleshoot.TroubleshootDeviceRequest) (*health.TroubleshootReport, error) {
	return &health.TroubleshootReport{Status: health.OverallHealthy}, nil
}

func (stubTroubleshooter) CheckAllDevices(context.Context, *troubleshoot.CheckAllDevicesRequest) (*health.FleetReport, error) {
	return &health.FleetReport{Status: health.OverallHealthy}, nil
}

func (stubTroubleshooter) Process(context.Context, string, map[string]any) (any, error) {
	return map[string]any{}, nil
}

type stubOrchestrator struct{}

func (stubOrchestrator) Handle(_ context.Context, req *orchestrator.ChatRequest) (*orchestrator.ChatResponse, error) {
	return &orchestrator.ChatResponse{Reply: req.Message}, nil
}
func (stubOrchestrator) ListTools() []tool.Info { return []tool.Info{} }
func (stubOrchestrator) CallTool(context.Context, *orchestrator.CallToolRequest) (any, error) {
	return "called", nil
}
func (stubOrchestrator) History(context.Context, string, int) ([]conversation.Message, error) {
	return []conversation.Message{}, nil
}
func (stubOrchestrator) Clear(context.Context, string) error { return nil }
func (stubOrchestrator) Sessions(context.Context) ([]conversation.SessionInfo, error) {
	return []conversation.SessionInfo{}, nil
}
func (stubOrchestrator) Stats(context.Context, string) (*conversation.Stats, error) {
	return &conversation.Stats{}, nil
}

func newRouter(cfg *config.Config, healthFn func() map[string]string) *gin.Engine {
	return SetupRoutes(cfg, Dependencies{
		Troubleshoot: stubTroubleshooter{},
		Orchestrator: stubOrchestrator{},
		Health:       healthFn,
		Limiter:      middleware.NewRateLimiter(100, 100),
	})
}

func request(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newRouter(&config.Config{}, func() map[string]string { return nil })
	w := request(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	r = newRouter(&config.Config{}, func() map[string]string { return map[string]string{"database": "closed"} })
	w = request(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "closed")
}

func TestRoutesWithoutAuth(t *testing.T) {
	r := newRouter(&config.Config{}, nil)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/tools", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/troubleshoot/fleet", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/v1/tools/scc_tool/list", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/sessions", "").Code)
}

func TestRoutesWithAuth(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "k"}}
	r := newRouter(cfg, nil)

	viewer, err := utils.GenerateToken("v", "viewer", "k", time.Hour)
	require.NoError(t, err)
	operator, err := utils.GenerateToken("o", middleware.RoleOperator, "k", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, "/api/v1/tools", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/tools", viewer).Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodPost, "/api/v1/tools/scc_tool/list", viewer).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/v1/tools/scc_tool/list", operator).Code)
}
