package tool

import "context"

// Tool is a backend capability the orchestrator can route a request to.
type Tool interface {
	Name() string
	Description() string
	// Operations lists supported operation names; the first is the default.
	Operations() []string
	Process(ctx context.Context, operation string, params map[string]any) (any, error)
}

type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Operations  []string `json:"operations"`
}

func Describe(t Tool) Info {
	return Info{
		Name:        t.Name(),
		Description: t.Description(),
		Operations:  t.Operations(),
	}
}
