// Package agent orchestrates a conversation turn: deciding which tools the
// model needs, dispatching them in parallel, and synthesizing the final
// answer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/stockadvisor/internal/conversation"
	"github.com/ajitpratap0/stockadvisor/internal/llm"
	"github.com/ajitpratap0/stockadvisor/internal/metrics"
	"github.com/ajitpratap0/stockadvisor/internal/tools"
)

// State names one phase of a conversation turn. Transitions are logged so a
// stuck turn is diagnosable from the logs alone.
type State string

const (
	StateIdle             State = "idle"
	StatePromptBuilding   State = "prompt_building"
	StateAwaitingDecision State = "awaiting_decision"
	StateDispatching      State = "dispatching"
	StateSynthesizing     State = "synthesizing"
)

// ModelClient is the slice of the LLM client the orchestrator needs.
type ModelClient interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config tunes orchestration.
type Config struct {
	MaxParallelTools int
}

// DefaultConfig returns standard orchestration tuning.
func DefaultConfig() Config {
	return Config{MaxParallelTools: 4}
}

// ToolInvocation records one dispatched tool call and its outcome.
type ToolInvocation struct {
	ID       string         `json:"id"`
	Tool     string         `json:"tool"`
	Params   map[string]any `json:"params"`
	Result   any            `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Response is the assistant's answer for one user message.
type Response struct {
	Reply       string           `json:"reply"`
	ToolsUsed   []string         `json:"tools_used,omitempty"`
	Invocations []ToolInvocation `json:"invocations,omitempty"`
	Degraded    bool             `json:"degraded,omitempty"`
}

// Orchestrator runs conversation turns. Turns for the same user are
// serialized through the conversation store; different users proceed in
// parallel.
type Orchestrator struct {
	model       ModelClient
	registry    *tools.Registry
	store       *conversation.Store
	maxParallel int
}

// New creates an orchestrator.
func New(model ModelClient, registry *tools.Registry, store *conversation.Store, cfg Config) *Orchestrator {
	if cfg.MaxParallelTools < 1 {
		cfg.MaxParallelTools = DefaultConfig().MaxParallelTools
	}
	return &Orchestrator{
		model:       model,
		registry:    registry,
		store:       store,
		maxParallel: cfg.MaxParallelTools,
	}
}

// ProcessMessage runs one full turn for a user. The decision call is the
// only fatal model dependency: if synthesis fails, the turn degrades to a
// deterministic rendering of the tool results instead of failing.
func (o *Orchestrator) ProcessMessage(ctx context.Context, userID, message string) (*Response, error) {
	unlock := o.store.LockUser(userID)
	defer unlock()

	turn := newTurnLogger(userID)

	turn.transition(StatePromptBuilding)
	snapshot := o.store.Get(userID)
	system := llm.SystemPromptWithContext(snapshot.TrackedSymbols, snapshot.Preferences)
	window := toChatMessages(o.store.Window(userID))
	decisionPrompt := llm.BuildToolDecisionPrompt(message, o.registry.ManifestJSON(), window)

	// The user message is part of the history as soon as it arrives, even if
	// the turn fails later. The window above predates it, so the prompts do
	// not carry the message twice.
	o.store.Append(userID, conversation.NewMessage("user", message, nil))

	turn.transition(StateAwaitingDecision)
	start := time.Now()
	content, err := o.model.CompleteWithSystem(ctx, system, decisionPrompt)
	if err != nil {
		metrics.RecordLLMRequest(metrics.LLMCallDecision, metrics.ResultError, time.Since(start).Seconds())
		return nil, fmt.Errorf("tool decision: %w", err)
	}
	metrics.RecordLLMRequest(metrics.LLMCallDecision, metrics.ResultSuccess, time.Since(start).Seconds())

	decision := llm.ParseToolDecision(content, o.registry.Has)

	response := &Response{}
	if !decision.NeedsTools {
		response.Reply = decision.Reply
	} else {
		turn.transition(StateDispatching)
		invocations := o.dispatch(ctx, decision.ToolCalls)
		o.trackSymbols(userID, decision.ToolCalls)

		turn.transition(StateSynthesizing)
		reply, degraded := o.synthesize(ctx, system, message, invocations, window)

		response.Reply = reply
		response.Degraded = degraded
		response.Invocations = invocations
		response.ToolsUsed = toolNames(invocations)
	}
	turn.transition(StateIdle)

	var meta map[string]any
	if len(response.ToolsUsed) > 0 {
		meta = map[string]any{"tools_used": response.ToolsUsed}
	}
	o.store.Append(userID, conversation.NewMessage("assistant", response.Reply, meta))
	metrics.ActiveConversations.Set(float64(o.store.Len()))

	return response, nil
}

// dispatch runs the requested tool calls with bounded parallelism. Failures
// become error entries in the results; they never abort the other calls.
func (o *Orchestrator) dispatch(ctx context.Context, calls []llm.ToolCall) []ToolInvocation {
	invocations := make([]ToolInvocation, len(calls))

	g := new(errgroup.Group)
	g.SetLimit(o.maxParallel)

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			start := time.Now()
			result, err := o.registry.Dispatch(ctx, call.Tool, call.Params)
			inv := ToolInvocation{
				ID:       uuid.NewString(),
				Tool:     call.Tool,
				Params:   call.Params,
				Duration: time.Since(start),
			}
			if err != nil {
				inv.Error = err.Error()
			} else {
				inv.Result = result
			}
			invocations[i] = inv
			return nil
		})
	}
	_ = g.Wait()

	return invocations
}

// synthesize asks the model to compose the final answer. On any model
// failure it falls back to a deterministic rendering of the tool results.
func (o *Orchestrator) synthesize(ctx context.Context, system, message string, invocations []ToolInvocation, window []llm.ChatMessage) (string, bool) {
	results := resultsByTool(invocations)

	start := time.Now()
	reply, err := o.model.CompleteWithSystem(ctx, system, llm.BuildSynthesisPrompt(message, results, window))
	if err != nil {
		metrics.RecordLLMRequest(metrics.LLMCallSynthesis, metrics.ResultError, time.Since(start).Seconds())
		log.Warn().Err(err).Msg("Synthesis failed, rendering tool results directly")
		return renderFallback(invocations), true
	}
	metrics.RecordLLMRequest(metrics.LLMCallSynthesis, metrics.ResultSuccess, time.Since(start).Seconds())
	return reply, false
}

func (o *Orchestrator) trackSymbols(userID string, calls []llm.ToolCall) {
	for _, call := range calls {
		if sym, ok := call.Params["symbol"].(string); ok {
			o.store.TrackSymbol(userID, strings.ToUpper(strings.TrimSpace(sym)))
		}
		if syms, ok := call.Params["symbols"].([]any); ok {
			for _, raw := range syms {
				if sym, ok := raw.(string); ok {
					o.store.TrackSymbol(userID, strings.ToUpper(strings.TrimSpace(sym)))
				}
			}
		}
	}
}

// resultsByTool keys each invocation for the synthesis prompt. Repeated
// tools get a numeric suffix so no result shadows another.
func resultsByTool(invocations []ToolInvocation) map[string]any {
	results := make(map[string]any, len(invocations))
	counts := make(map[string]int, len(invocations))
	for _, inv := range invocations {
		key := inv.Tool
		counts[inv.Tool]++
		if n := counts[inv.Tool]; n > 1 {
			key = fmt.Sprintf("%s#%d", inv.Tool, n)
		}
		if inv.Error != "" {
			results[key] = map[string]any{"error": inv.Error}
			continue
		}
		results[key] = inv.Result
	}
	return results
}

// renderFallback produces the degraded reply when synthesis is impossible:
// a fixed-structure rendering of each tool's result or error.
func renderFallback(invocations []ToolInvocation) string {
	var b strings.Builder
	b.WriteString("The assistant could not compose a full answer right now. Raw results:\n")

	for _, inv := range invocations {
		if inv.Error != "" {
			fmt.Fprintf(&b, "\n%s: unavailable (%s)\n", inv.Tool, inv.Error)
			continue
		}
		data, err := json.MarshalIndent(inv.Result, "", "  ")
		if err != nil {
			fmt.Fprintf(&b, "\n%s: result could not be rendered\n", inv.Tool)
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n%s\n", inv.Tool, data)
	}
	return b.String()
}

func toolNames(invocations []ToolInvocation) []string {
	seen := make(map[string]struct{}, len(invocations))
	names := make([]string, 0, len(invocations))
	for _, inv := range invocations {
		if _, dup := seen[inv.Tool]; dup {
			continue
		}
		seen[inv.Tool] = struct{}{}
		names = append(names, inv.Tool)
	}
	sort.Strings(names)
	return names
}

func toChatMessages(messages []conversation.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(messages))
	for i, msg := range messages {
		out[i] = llm.ChatMessage{Role: msg.Role, Content: msg.Content}
	}
	return out
}

// turnLogger logs state transitions for one turn.
type turnLogger struct {
	userID string
	state  State
}

func newTurnLogger(userID string) *turnLogger {
	return &turnLogger{userID: userID, state: StateIdle}
}

func (t *turnLogger) transition(next State) {
	log.Debug().
		Str("user_id", t.userID).
		Str("from", string(t.state)).
		Str("to", string(next)).
		Msg("Turn state changed")
	t.state = next
}
