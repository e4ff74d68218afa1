package sse

import (
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// MaxUnwrap bounds how many nested output/content layers are peeled off an
// envelope. It also bounds recursion into nested parts and probed fields.
const MaxUnwrap = 6

// payloadKeys hold a nested payload that may itself be any envelope shape.
var payloadKeys = []string{"output", "content"}

// messageWrappers hold a message-like object exposing "content".
var messageWrappers = []string{"message", "kwargs", "lc_kwargs"}

// probeKeys are tried in order when nothing else matched.
var probeKeys = []string{"text", "response", "result", "delta", "generated_text", "completion", "token", "data", "value"}

// matcher attempts one known envelope shape. ok is false when the shape does
// not apply; depth is the remaining recursion budget.
type matcher func(v any, depth int) (text string, ok bool)

// matchers run in precedence order after the nested payload is unwrapped.
// Several of them recurse through extract, so the table is filled in init.
var matchers []matcher

func init() {
	matchers = []matcher{
		plainString,
		answerField,
		partsSequence,
		messageContent,
		completionChoices,
		probeFields,
	}
}

// Extract returns the display text carried by a decoded envelope, or "" if no
// known shape yields any.
func Extract(v any) string {
	return extract(v, MaxUnwrap)
}

func extract(v any, depth int) string {
	v = unwrap(v)
	for _, match := range matchers {
		if text, ok := match(v, depth); ok && text != "" {
			return text
		}
	}
	return ""
}

// unwrap follows nested "output"/"content" payloads. After MaxUnwrap steps the
// current value is used as-is, which stops self-referential payloads.
func unwrap(v any) any {
	for i := 0; i < MaxUnwrap; i++ {
		obj, ok := v.(map[string]any)
		if !ok {
			return v
		}
		next, ok := nestedPayload(obj)
		if !ok {
			return v
		}
		v = next
	}
	return v
}

func nestedPayload(obj map[string]any) (any, bool) {
	for _, key := range payloadKeys {
		if payload, ok := obj[key]; ok && payload != nil {
			return payload, true
		}
	}
	return nil, false
}

// descend resolves a nested value with one less level of budget.
func descend(v any, depth int) string {
	if depth <= 0 {
		return ""
	}
	return extract(v, depth-1)
}

func plainString(v any, _ int) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func answerField(v any, depth int) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	answer, ok := obj["answer"]
	if !ok {
		return "", false
	}
	if s, ok := answer.(string); ok {
		return s, true
	}
	return descend(answer, depth), true
}

func partsSequence(v any, depth int) (string, bool) {
	parts, ok := v.([]any)
	if !ok {
		obj, isObj := v.(map[string]any)
		if !isObj {
			return "", false
		}
		if parts, ok = obj["parts"].([]any); !ok {
			return "", false
		}
	}

	var b strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case string:
			b.WriteString(p)
		case map[string]any:
			if text, ok := p["text"].(string); ok {
				b.WriteString(text)
				continue
			}
			if nested, ok := p["content"]; ok {
				b.WriteString(descend(nested, depth))
			}
		}
	}
	return b.String(), true
}

func messageContent(v any, depth int) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}

	if content, ok := obj["content"]; ok {
		return descend(content, depth), true
	}

	for _, key := range messageWrappers {
		wrapped, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		if content, ok := wrapped["content"]; ok {
			if text := descend(content, depth); text != "" {
				return text, true
			}
		}
	}
	return "", false
}

// completionChoices handles OpenAI-compatible chunks and full responses.
func completionChoices(v any, _ int) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	if _, ok := obj["choices"].([]any); !ok {
		return "", false
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return "", false
	}

	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal(raw, &chunk); err == nil {
		var b strings.Builder
		for _, choice := range chunk.Choices {
			b.WriteString(choice.Delta.Content)
		}
		if b.Len() > 0 {
			return b.String(), true
		}
	}

	var full openai.ChatCompletionResponse
	if err := json.Unmarshal(raw, &full); err != nil {
		return "", false
	}
	var b strings.Builder
	for _, choice := range full.Choices {
		b.WriteString(choice.Message.Content)
	}
	return b.String(), true
}

func probeFields(v any, depth int) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	for _, key := range probeKeys {
		field, ok := obj[key]
		if !ok || field == nil {
			continue
		}
		var text string
		if s, isString := field.(string); isString {
			text = s
		} else {
			text = descend(field, depth)
		}
		if text != "" {
			return text, true
		}
	}
	return "", false
}
