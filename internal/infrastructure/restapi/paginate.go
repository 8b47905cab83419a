package restapi

import (
	"context"
	"net/http"
)

const (
	defaultPageSize = 50
	defaultMaxPages = 10
)

func (t *Tool) paginatedGet(ctx context.Context, p paginationParams) (*PaginatedResponse, error) {
	limitParam := orDefault(p.LimitParam, "limit")
	offsetParam := orDefault(p.OffsetParam, "offset")
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	out := &PaginatedResponse{Data: []any{}, Paginated: true}
	total := -1

	for page := 0; page < maxPages; page++ {
		req := p.requestParams
		req.Params = make(map[string]any, len(p.Params)+2)
		for k, v := range p.Params {
			req.Params[k] = v
		}
		req.Params[limitParam] = pageSize
		req.Params[offsetParam] = page * pageSize

		resp, err := t.do(ctx, http.MethodGet, req)
		if err != nil {
			return nil, err
		}
		out.TotalPages = page + 1

		items, pageTotal, single := pageItems(resp.Data)
		if total < 0 && pageTotal >= 0 {
			total = pageTotal
		}
		out.Data = append(out.Data, items...)
		if single || len(items) < pageSize {
			break
		}
	}

	out.RecordsRetrieved = len(out.Data)
	out.TotalRecords = out.RecordsRetrieved
	if total > 0 {
		out.TotalRecords = total
	}
	return out, nil
}

// pageItems extracts the records of one page. single is set when the body is
// not a recognizable listing and paging should stop.
func pageItems(data any) (items []any, total int, single bool) {
	total = -1
	switch v := data.(type) {
	case []any:
		return v, total, false
	case map[string]any:
		for _, key := range []string{"total", "count", "totalCount"} {
			if n, ok := v[key].(float64); ok {
				total = int(n)
				break
			}
		}
		for _, key := range []string{"items", "data", "results"} {
			if list, ok := v[key].([]any); ok {
				return list, total, false
			}
		}
		return nil, total, false
	default:
		return []any{v}, total, true
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
