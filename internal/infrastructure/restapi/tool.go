package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/logger"
	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"go.uber.org/zap"
)

const (
	ToolName         = "rest_api"
	userAgent        = "LLM-Tool-Orchestrator/1.0"
	defaultTimeout   = 30 * time.Second
	maxRedirects     = 5
	maxResponseBytes = 10 << 20
)

var operations = []string{"get", "post", "put", "delete", "patch", "paginated_get"}

type requestParams struct {
	URL       string            `json:"url" validate:"required,url"`
	Headers   map[string]string `json:"headers"`
	Params    map[string]any    `json:"params"`
	JSONData  any               `json:"json_data"`
	Data      any               `json:"data"`
	AuthToken string            `json:"auth_token"`
	AuthType  string            `json:"auth_type"`
	Timeout   float64           `json:"timeout" validate:"min=0"`
}

type paginationParams struct {
	requestParams
	LimitParam    string `json:"limit_param"`
	OffsetParam   string `json:"offset_param"`
	PageSize      int    `json:"page_size" validate:"min=0"`
	MaxPages      int    `json:"max_pages" validate:"min=0"`
}

// Response is what a single call returns to the caller.
type Response struct {
	StatusCode   int               `json:"status_code"`
	Headers      map[string]string `json:"headers"`
	Data         any               `json:"data"`
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	IsJSON       bool              `json:"is_json"`
	ResponseSize int               `json:"response_size"`
}

type PaginatedResponse struct {
	TotalPages       int   `json:"total_pages"`
	TotalRecords     int   `json:"total_records"`
	RecordsRetrieved int   `json:"records_retrieved"`
	Data             []any `json:"data"`
	Paginated        bool  `json:"paginated"`
}

// Tool calls arbitrary HTTP endpoints on behalf of the orchestrator.
type Tool struct {
	defaultToken string
	timeout      time.Duration
	client       *http.Client
}

func NewTool(cfg config.RESTConfig) *Tool {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Tool{
		defaultToken: cfg.Token,
		timeout:      timeout,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "Call any REST endpoint with GET, POST, PUT, DELETE or PATCH, or page through a listing with paginated_get."
}

func (t *Tool) Operations() []string { return append([]string(nil), operations...) }

func (t *Tool) Process(ctx context.Context, operation string, params map[string]any) (any, error) {
	switch operation {
	case "get", "post", "put", "delete", "patch":
		var p requestParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		resp, err := t.do(ctx, strings.ToUpper(operation), p)
		if err != nil {
			return nil, err
		}
		return resp, nil
	case "paginated_get":
		var p paginationParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		resp, err := t.paginatedGet(ctx, p)
		if err != nil {
			return nil, err
		}
		return resp, nil
	default:
		return nil, appErrors.NewAppError(appErrors.CodeUnsupportedOperation,
			fmt.Sprintf("Unsupported operation: %s. Available: %s", operation, strings.Join(operations, ", ")), nil)
	}
}

func (t *Tool) do(ctx context.Context, method string, p requestParams) (*Response, error) {
	target, err := buildURL(p.URL, p.Params)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(p)
	if err != nil {
		return nil, err
	}

	timeout := t.timeout
	if p.Timeout > 0 {
		timeout = time.Duration(p.Timeout * float64(time.Second))
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid request", err)
	}
	t.setHeaders(req, p, contentType)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		logger.Warn("REST call failed",
			zap.String("event", "rest_call_failed"),
			zap.String("method", method),
			zap.String("url", p.URL),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.NewAppError(appErrors.CodeInternal, fmt.Sprintf("Request timeout after %s", timeout), err)
		}
		return nil, appErrors.NewAppError(appErrors.CodeInternal, fmt.Sprintf("Connection error to %s", p.URL), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInternal, "Failed to read response", err)
	}

	logger.Debug("REST call completed",
		zap.String("event", "rest_call"),
		zap.String("method", method),
		zap.String("url", p.URL),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	data, isJSON := decodeData(raw)
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return &Response{
		StatusCode:   resp.StatusCode,
		Headers:      headers,
		Data:         data,
		URL:          resp.Request.URL.String(),
		Method:       method,
		IsJSON:       isJSON,
		ResponseSize: len(raw),
	}, nil
}

func (t *Tool) setHeaders(req *http.Request, p requestParams, contentType string) {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	token := p.AuthToken
	if token == "" {
		token = t.defaultToken
	}
	if token == "" {
		return
	}

	switch strings.ToLower(p.AuthType) {
	case "", "bearer":
		req.Header.Set("Authorization", "Bearer "+token)
	case "basic":
		req.Header.Set("Authorization", "Basic "+token)
	case "api-key", "api_key":
		req.Header.Set("X-API-Key", token)
	default:
		req.Header.Set("Authorization", p.AuthType+" "+token)
	}
}

func buildURL(raw string, params map[string]any) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", appErrors.NewAppError(appErrors.CodeInvalidArgument, fmt.Sprintf("Invalid URL format: %s", raw), err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func encodeBody(p requestParams) (io.Reader, string, error) {
	payload := p.JSONData
	if payload == nil {
		payload = p.Data
	}
	switch v := payload.(type) {
	case nil:
		return nil, "application/json", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, "", appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid request body", err)
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}

// decodeData returns parsed JSON when the body is an object or array, and the
// text otherwise.
func decodeData(raw []byte) (any, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		switch v.(type) {
		case map[string]any, []any:
			return v, true
		}
	}
	return string(raw), false
}

func decodeAndValidate(params map[string]any, out any) error {
	if err := utils.DecodeParams(params, out); err != nil {
		return appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid parameters", err)
	}
	if err := utils.ValidateStruct(out); err != nil {
		return appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid input", err)
	}
	return nil
}
