package tool

import (
	"context"
	"fmt"
	"sync"

	appErrors "intent-orchestrator/pkg/errors"
)

// Registry holds tools in registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds t, replacing any tool already registered under the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, appErrors.NewAppError(appErrors.CodeToolNotFound, fmt.Sprintf("Tool %q is not registered", name), nil)
	}
	return t, nil
}

func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, Describe(r.tools[name]))
	}
	return infos
}

// Call runs operation on the named tool. An empty operation selects the
// tool's default.
func (r *Registry) Call(ctx context.Context, name, operation string, params map[string]any) (any, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if operation == "" {
		if ops := t.Operations(); len(ops) > 0 {
			operation = ops[0]
		}
	}
	if params == nil {
		params = map[string]any{}
	}
	return t.Process(ctx, operation, params)
}
