package llm

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// CleanJSON strips markdown code fences and any prose around the outermost
// JSON object or array.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], "{[") {
			text = text[nl+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return strings.TrimSpace(text)
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(text, closer); end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// UnmarshalLoose cleans text with CleanJSON and unmarshals it into v.
func UnmarshalLoose(text string, v any) error {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return eris.New("llm: empty response")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return eris.Wrap(err, "llm: decode json")
	}
	return nil
}
