// Package eip1193test provides a scriptable Provider for tests.
package eip1193test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Mohsinsiddi/cryptopet/internal/eip1193"
)

// HandlerFunc answers one method. The returned value is JSON-encoded.
type HandlerFunc func(params []any) (any, error)

// Call is a recorded request.
type Call struct {
	Method string
	Params []any
}

// Provider routes requests to per-method handlers and records every call.
// Methods without a handler fail with -32601.
type Provider struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []Call
}

// New returns an empty fake provider.
func New() *Provider {
	return &Provider{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for method, replacing any earlier handler.
func (p *Provider) Handle(method string, fn HandlerFunc) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[method] = fn
	return p
}

// Returns registers a fixed result for method.
func (p *Provider) Returns(method string, v any) *Provider {
	return p.Handle(method, func([]any) (any, error) { return v, nil })
}

// Fails registers a fixed error code for method.
func (p *Provider) Fails(method string, code int) *Provider {
	return p.Handle(method, func([]any) (any, error) {
		return nil, eip1193.NewError(code, "%s failed", method)
	})
}

// Request implements eip1193.Provider.
func (p *Provider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Method: method, Params: params})
	fn, ok := p.handlers[method]
	p.mu.Unlock()

	if !ok {
		return nil, eip1193.NewError(eip1193.CodeMethodNotFound, "method %s not supported", method)
	}
	v, err := fn(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Calls returns the recorded calls in order.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Methods returns the recorded method names in order.
func (p *Provider) Methods() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.Method
	}
	return out
}

// Count returns how many times method was requested.
func (p *Provider) Count(method string) int {
	n := 0
	for _, m := range p.Methods() {
		if m == method {
			n++
		}
	}
	return n
}
