package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/logger"

	"go.uber.org/zap"
)

// ErrLLMUnavailable indicates every endpoint in the chain is down.
var ErrLLMUnavailable = errors.New("all LLM endpoints unavailable")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	Temperature float64
	MaxTokens   int
}

var defaultOptions = Options{Temperature: 0.7, MaxTokens: 1000}

// Client calls OpenAI-compatible chat completion APIs with a fallback chain.
type Client struct {
	endpoints []config.LLMEndpoint
	apiKey    string
	client    *http.Client
}

func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		endpoints: cfg.Endpoints,
		apiKey:    cfg.APIKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
}

// Complete returns the assistant text for messages.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, messages, defaultOptions)
}

// complete tries each endpoint in order. Only availability failures move on
// to the next endpoint.
func (c *Client) complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if len(c.endpoints) == 0 {
		return "", fmt.Errorf("%w: no LLM endpoints configured", ErrLLMUnavailable)
	}

	var lastErr error
	for i, ep := range c.endpoints {
		content, err := c.tryEndpoint(ctx, ep, messages, opts)
		if err == nil {
			if i > 0 {
				logger.Info("LLM fallback endpoint succeeded",
					zap.String("event", "llm_fallback"),
					zap.Int("endpoint", i+1),
					zap.String("model", ep.Model),
				)
			}
			return content, nil
		}

		lastErr = err
		if isUnavailableErr(err) {
			logger.Warn("LLM endpoint unavailable, trying next",
				zap.String("event", "llm_endpoint_unavailable"),
				zap.Int("endpoint", i+1),
				zap.String("model", ep.Model),
				zap.Error(err),
			)
			continue
		}

		return "", err
	}

	return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, lastErr)
}

func (c *Client) tryEndpoint(ctx context.Context, ep config.LLMEndpoint, messages []Message, opts Options) (string, error) {
	bodyBytes, err := json.Marshal(map[string]any{
		"model":       ep.Model,
		"messages":    messages,
		"max_tokens":  opts.MaxTokens,
		"temperature": opts.Temperature,
		"stream":      false,
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimSuffix(ep.URL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("connection failed: %w", err)
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadGateway ||
		resp.StatusCode == http.StatusServiceUnavailable ||
		resp.StatusCode == http.StatusGatewayTimeout {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode completion: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return "", errors.New("no response choices returned from LLM")
	}
	content := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty response content from LLM")
	}
	return content, nil
}

func isUnavailableErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "connection") ||
		strings.Contains(s, "HTTP 502") ||
		strings.Contains(s, "HTTP 503") ||
		strings.Contains(s, "HTTP 504")
}

// IsUnavailable reports whether err means no endpoint could be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrLLMUnavailable)
}
