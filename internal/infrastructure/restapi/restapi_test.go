package restapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"intent-orchestrator/internal/config"
	appErrors "intent-orchestrator/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTool() *Tool {
	return NewTool(config.RESTConfig{Token: "default-token", Timeout: 5 * time.Second})
}

func TestGetSendsDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "LLM-Tool-Orchestrator/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "Bearer default-token", r.Header.Get("Authorization"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "yes", r.Header.Get("X-Trace"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [1, 2]}`))
	}))
	defer srv.Close()

	out, err := newTestTool().Process(context.Background(), "get", map[string]any{
		"url":     srv.URL + "/devices",
		"params":  map[string]any{"limit": 10},
		"headers": map[string]any{"X-Trace": "yes"},
	})

	require.NoError(t, err)
	resp := out.(*Response)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsJSON)
	assert.Equal(t, "GET", resp.Method)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, []any{float64(1), float64(2)}, resp.Data.(map[string]any)["items"])
}

func TestPostBodies(t *testing.T) {
	type received struct{ contentType, body string }
	got := make(chan received, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{r.Header.Get("Content-Type"), string(body)}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer srv.Close()
	tool := newTestTool()

	out, err := tool.Process(context.Background(), "post", map[string]any{
		"url":       srv.URL,
		"json_data": map[string]any{"name": "edge"},
	})
	require.NoError(t, err)
	first := <-got
	assert.Equal(t, "application/json", first.contentType)
	assert.JSONEq(t, `{"name":"edge"}`, first.body)
	resp := out.(*Response)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, resp.IsJSON)
	assert.Equal(t, "created", resp.Data)
	assert.Equal(t, 7, resp.ResponseSize)

	_, err = tool.Process(context.Background(), "put", map[string]any{"url": srv.URL, "data": "raw text"})
	require.NoError(t, err)
	second := <-got
	assert.Equal(t, "text/plain", second.contentType)
	assert.Equal(t, "raw text", second.body)
}

func TestAuthTypes(t *testing.T) {
	tests := []struct {
		authType string
		header   string
		want     string
	}{
		{"bearer", "Authorization", "Bearer tok"},
		{"basic", "Authorization", "Basic tok"},
		{"api-key", "X-API-Key", "tok"},
		{"Token", "Authorization", "Token tok"},
	}

	for _, tt := range tests {
		t.Run(tt.authType, func(t *testing.T) {
			got := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got <- r.Header.Get(tt.header)
			}))
			defer srv.Close()

			_, err := newTestTool().Process(context.Background(), "delete", map[string]any{
				"url": srv.URL, "auth_token": "tok", "auth_type": tt.authType,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, <-got)
		})
	}
}

func TestNonSuccessStatusIsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "missing"}`))
	}))
	defer srv.Close()

	out, err := newTestTool().Process(context.Background(), "get", map[string]any{"url": srv.URL})

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, out.(*Response).StatusCode)
}

func TestInvalidRequests(t *testing.T) {
	tool := newTestTool()
	ctx := context.Background()

	tests := []struct {
		name string
		op   string
		in   map[string]any
		code string
	}{
		{"missing url", "get", map[string]any{}, appErrors.CodeInvalidArgument},
		{"bad scheme", "get", map[string]any{"url": "ftp://example.com/x"}, appErrors.CodeInvalidArgument},
		{"not a url", "get", map[string]any{"url": "example"}, appErrors.CodeInvalidArgument},
		{"unknown op", "head", map[string]any{"url": "http://example.com"}, appErrors.CodeUnsupportedOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tool.Process(ctx, tt.op, tt.in)
			assert.Nil(t, out)
			assert.Equal(t, tt.code, appErrors.CodeOf(err))
		})
	}
}

func TestConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	out, err := newTestTool().Process(context.Background(), "get", map[string]any{"url": url})

	assert.Nil(t, out)
	assert.Equal(t, appErrors.CodeInternal, appErrors.CodeOf(err))
}

func TestPaginatedGet(t *testing.T) {
	const totalItems = 7
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("size"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("from"))
		assert.Equal(t, "active", r.URL.Query().Get("state"))

		items := []int{}
		for i := offset; i < offset+limit && i < totalItems; i++ {
			items = append(items, i)
		}
		json.NewEncoder(w).Encode(map[string]any{"results": items, "totalCount": totalItems})
	}))
	defer srv.Close()

	out, err := newTestTool().Process(context.Background(), "paginated_get", map[string]any{
		"url":          srv.URL,
		"params":       map[string]any{"state": "active"},
		"limit_param":  "size",
		"offset_param": "from",
		"page_size":    3,
	})

	require.NoError(t, err)
	resp := out.(*PaginatedResponse)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, totalItems, resp.RecordsRetrieved)
	assert.Equal(t, totalItems, resp.TotalRecords)
	assert.Equal(t, float64(6), resp.Data[6])
}

func TestPaginatedGetStopsAtMaxPages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[1, 2]`))
	}))
	defer srv.Close()

	out, err := newTestTool().Process(context.Background(), "paginated_get", map[string]any{
		"url": srv.URL, "page_size": 2, "max_pages": 2,
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 4, out.(*PaginatedResponse).RecordsRetrieved)
}

func TestPageItems(t *testing.T) {
	items, total, single := pageItems(map[string]any{"data": []any{"a"}, "count": float64(9)})
	assert.Equal(t, []any{"a"}, items)
	assert.Equal(t, 9, total)
	assert.False(t, single)

	items, _, single = pageItems("plain")
	assert.Equal(t, []any{"plain"}, items)
	assert.True(t, single)
}
