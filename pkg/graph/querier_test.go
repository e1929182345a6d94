package graph

import (
	"context"
	"sync"
)

type call struct {
	mode   string
	cypher string
	params map[string]any
}

// fakeQuerier records every call and answers with respond
type fakeQuerier struct {
	mu      sync.Mutex
	calls   []call
	respond func(c call) ([]map[string]any, error)
}

func (f *fakeQuerier) do(mode string, cypher string, params map[string]any) ([]map[string]any, error) {
	f.mu.Lock()
	c := call{mode: mode, cypher: cypher, params: params}
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	if f.respond == nil {
		return []map[string]any{}, nil
	}
	return f.respond(c)
}

func (f *fakeQuerier) Read(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return f.do("read", cypher, params)
}

func (f *fakeQuerier) Write(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return f.do("write", cypher, params)
}

func (f *fakeQuerier) Exec(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return f.do("exec", cypher, params)
}
