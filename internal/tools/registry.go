// Package tools defines the executable tool surface: the registry the
// orchestrator dispatches through, the domain handlers behind each tool,
// and the MCP manifest describing them.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/stockadvisor/internal/metrics"
)

// Handler executes one tool call. Params are already validated against the
// tool's schema by the time a handler runs.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Validator checks raw parameters before the handler runs. A nil validator
// accepts everything.
type Validator func(params map[string]any) error

// Definition binds an MCP tool description to its handler.
type Definition struct {
	Tool     *mcp.Tool
	Handler  Handler
	Validate Validator
}

// Registry holds the registered tools and dispatches calls with a per-call
// timeout.
type Registry struct {
	mu      sync.RWMutex
	defs    map[string]Definition
	order   []string
	timeout time.Duration
}

// NewRegistry creates a registry whose dispatches time out after timeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Registry{
		defs:    make(map[string]Definition),
		timeout: timeout,
	}
}

// Register adds a tool. Registering the same name twice is a programming
// error and fails.
func (r *Registry) Register(def Definition) error {
	if def.Tool == nil || def.Tool.Name == "" {
		return errors.New("tool definition requires a name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s requires a handler", def.Tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Tool.Name)
	}
	r.defs[def.Tool.Name] = def
	r.order = append(r.order, def.Tool.Name)
	return nil
}

// Has reports whether a tool name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// Tools returns the MCP descriptions of every tool, in registration order.
func (r *Registry) Tools() []*mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name].Tool)
	}
	return out
}

// ManifestJSON renders the tool manifest for model prompts: name,
// description, and input schema per tool.
func (r *Registry) ManifestJSON() string {
	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema any    `json:"input_schema,omitempty"`
	}

	tools := r.Tools()
	entries := make([]entry, 0, len(tools))
	for _, t := range tools {
		entries = append(entries, entry{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Dispatch validates and runs one tool call under the registry timeout.
// Handler errors come back as ExecutionError; a handler that outlives the
// timeout comes back as context.DeadlineExceeded wrapped the same way.
func (r *Registry) Dispatch(ctx context.Context, name string, params map[string]any) (any, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	if params == nil {
		params = map[string]any{}
	}

	if def.Validate != nil {
		if err := def.Validate(params); err != nil {
			metrics.RecordToolCall(name, metrics.ResultError, 0)
			return nil, &InvalidParamsError{Tool: name, Reason: err.Error()}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	result, err := def.Handler(callCtx, params)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordToolCall(name, metrics.ResultSuccess, elapsed.Seconds())
		log.Debug().Str("tool", name).Dur("duration", elapsed).Msg("Tool call completed")
		return result, nil
	case errors.Is(err, context.DeadlineExceeded):
		metrics.RecordToolCall(name, metrics.ResultTimeout, elapsed.Seconds())
		log.Warn().Str("tool", name).Dur("duration", elapsed).Msg("Tool call timed out")
		return nil, &ExecutionError{Tool: name, Err: err}
	default:
		metrics.RecordToolCall(name, metrics.ResultError, elapsed.Seconds())
		log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
		return nil, &ExecutionError{Tool: name, Err: err}
	}
}

// Timeout returns the per-call timeout.
func (r *Registry) Timeout() time.Duration {
	return r.timeout
}
