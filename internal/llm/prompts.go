package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const advisorSystemPrompt = `You are a knowledgeable financial analysis assistant. You help users
understand stocks through technical indicators, news sentiment, and market data.

Guidelines:
- Be precise: cite the concrete numbers you were given, never invent figures.
- Explain indicator readings in plain language.
- Always note that your analysis is informational and not financial advice.
- If data for a symbol was unavailable, say so instead of guessing.`

const toolDecisionInstructions = `Decide which tools, if any, you need to answer the user's message.

Respond with ONLY a JSON object in this exact format:
{
  "needs_tools": true | false,
  "tool_calls": [
    {"tool": "tool_name", "params": {"param": "value"}}
  ],
  "reply": "direct answer, only when needs_tools is false"
}

Rules:
- Use tools whenever the user asks about a specific stock, comparison, or market news.
- Answer directly (needs_tools: false) for greetings, follow-ups about prior results, and general questions.
- Only use tools from the list below. Parameters must match each tool's schema.`

// SystemPrompt returns the assistant persona used on every model call.
func SystemPrompt() string {
	return advisorSystemPrompt
}

// SystemPromptWithContext extends the persona with what is known about the
// user: symbols their conversation has touched and stated preferences.
func SystemPromptWithContext(trackedSymbols []string, preferences map[string]string) string {
	if len(trackedSymbols) == 0 && len(preferences) == 0 {
		return advisorSystemPrompt
	}

	var b strings.Builder
	b.WriteString(advisorSystemPrompt)
	if len(trackedSymbols) > 0 {
		b.WriteString("\n\nSymbols discussed in this conversation: ")
		b.WriteString(strings.Join(trackedSymbols, ", "))
	}
	if len(preferences) > 0 {
		b.WriteString("\nUser preferences:")
		keys := make([]string, 0, len(preferences))
		for k := range preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n- %s: %s", k, preferences[k])
		}
	}
	return b.String()
}

// BuildToolDecisionPrompt builds the prompt asking the model to choose
// tools for a user message. manifestJSON is the serialized tool manifest;
// history is the recent conversation window, oldest first.
func BuildToolDecisionPrompt(userMessage string, manifestJSON string, history []ChatMessage) string {
	var b strings.Builder
	b.WriteString(toolDecisionInstructions)
	b.WriteString("\n\nAvailable tools:\n")
	b.WriteString(manifestJSON)

	if len(history) > 0 {
		b.WriteString("\n\nRecent conversation:\n")
		b.WriteString(formatHistory(history))
	}

	b.WriteString("\n\nUser message: ")
	b.WriteString(userMessage)
	return b.String()
}

// BuildSynthesisPrompt builds the prompt asking the model to compose the
// final answer from tool results. Failed tools appear with their error so
// the model can acknowledge missing data.
func BuildSynthesisPrompt(userMessage string, toolResults map[string]any, history []ChatMessage) string {
	resultsJSON, err := json.MarshalIndent(toolResults, "", "  ")
	if err != nil {
		resultsJSON = []byte("{}")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Compose a clear, conversational answer to the user's message using the tool results below.

- Ground every claim in the results; do not invent numbers.
- If a result contains an "error" field, acknowledge that data was unavailable.
- Keep the structure readable: lead with the answer, then supporting detail.

Tool results:
%s`, string(resultsJSON))

	if len(history) > 0 {
		b.WriteString("\n\nRecent conversation:\n")
		b.WriteString(formatHistory(history))
	}

	b.WriteString("\n\nUser message: ")
	b.WriteString(userMessage)
	return b.String()
}

func formatHistory(history []ChatMessage) string {
	var b strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
