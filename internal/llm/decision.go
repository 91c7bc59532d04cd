package llm

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// maxToolCalls bounds how many tool calls a single decision may request.
// Model output is untrusted; without a cap a confused model could fan out
// arbitrarily.
const maxToolCalls = 8

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// ToolDecision is the model's answer to "which tools do you need". When
// NeedsTools is false, Reply holds the model's direct answer.
type ToolDecision struct {
	NeedsTools bool       `json:"needs_tools"`
	ToolCalls  []ToolCall `json:"tool_calls"`
	Reply      string     `json:"reply,omitempty"`
}

// ParseToolDecision interprets raw model output as a tool decision. The
// output is untrusted: malformed JSON is treated as a direct reply, unknown
// tool names are dropped, duplicate calls are collapsed, and the call count
// is capped. knownTool reports whether a tool name is registered.
func ParseToolDecision(content string, knownTool func(string) bool) *ToolDecision {
	var decision ToolDecision
	if err := ParseJSONResponse(content, &decision); err != nil {
		// The model answered in prose instead of the requested format.
		return &ToolDecision{NeedsTools: false, Reply: content}
	}

	if !decision.NeedsTools {
		if decision.Reply == "" {
			decision.Reply = content
		}
		decision.ToolCalls = nil
		return &decision
	}

	valid := make([]ToolCall, 0, len(decision.ToolCalls))
	seen := make(map[string]struct{})
	for _, call := range decision.ToolCalls {
		if call.Tool == "" || !knownTool(call.Tool) {
			log.Warn().Str("tool", call.Tool).Msg("Model requested unknown tool, dropping")
			continue
		}
		if call.Params == nil {
			call.Params = map[string]any{}
		}
		key := callKey(call)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		valid = append(valid, call)
		if len(valid) == maxToolCalls {
			log.Warn().Int("requested", len(decision.ToolCalls)).Msg("Tool call count capped")
			break
		}
	}

	if len(valid) == 0 {
		// Every requested tool was dropped. Without a usable reply in the
		// decision, fall back to the raw content like the prose case.
		reply := decision.Reply
		if reply == "" {
			reply = content
		}
		return &ToolDecision{NeedsTools: false, Reply: reply}
	}

	decision.ToolCalls = valid
	return &decision
}

func callKey(call ToolCall) string {
	params, err := json.Marshal(call.Params)
	if err != nil {
		return call.Tool
	}
	return call.Tool + ":" + string(params)
}
