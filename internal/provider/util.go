package provider

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_+-]*)\\n(.*?)```")

// ExtractFencedCode returns the contents of the first fenced code block in
// s, or s unchanged (trimmed) if no fence is present.
func ExtractFencedCode(s string) string {
	if m := fencedBlockPattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

var jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ExtractJSON tolerantly pulls a JSON value out of model output: it prefers
// a ```json fenced block, then falls back to the first balanced {...} or
// [...] span, and finally a raw parse of the whole string.
func ExtractJSON(s string) (json.RawMessage, error) {
	if m := jsonFencePattern.FindStringSubmatch(s); m != nil {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	if candidate := extractBalancedSpan(s, '{', '}'); candidate != "" && json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), nil
	}
	if candidate := extractBalancedSpan(s, '[', ']'); candidate != "" && json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), nil
	}

	trimmed := strings.TrimSpace(s)
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}
	return nil, errInvalidJSON(s)
}

func extractBalancedSpan(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

type jsonExtractError struct{ snippet string }

func (e jsonExtractError) Error() string {
	return "provider: no JSON value found in output: " + e.snippet
}

func errInvalidJSON(s string) error {
	snippet := s
	if len(snippet) > 80 {
		snippet = snippet[:80] + "..."
	}
	return jsonExtractError{snippet: snippet}
}

// ChatMessage is a single turn in the assembled conversation handed to a
// provider's SDK client.
type ChatMessage struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// BuildMessages assembles the (system, user) pair every agent sends into
// the ordered message list a provider's SDK expects.
func BuildMessages(systemPrompt, userPrompt string) []ChatMessage {
	msgs := make([]ChatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, ChatMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, ChatMessage{Role: "user", Content: userPrompt})
	return msgs
}
