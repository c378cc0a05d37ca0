package a2a

import (
	"encoding/json"
	"fmt"
)

// ExtractUserText returns params.message.parts[0].text, or "" when the
// params do not have that shape. It never fails.
func ExtractUserText(params any) string {
	msg := asObject(asObject(params)["message"])
	if msg == nil {
		return ""
	}
	parts, ok := msg["parts"].([]any)
	if !ok || len(parts) == 0 {
		return ""
	}
	part := asObject(parts[0])
	if part == nil {
		return ""
	}
	return stringify(part["text"])
}

// ExtractSkillID returns params.metadata.skillId, or "" when absent.
func ExtractSkillID(params any) string {
	md := asObject(asObject(params)["metadata"])
	if md == nil {
		return ""
	}
	return stringify(md["skillId"])
}

// asObject views v as a JSON object. Raw JSON is decoded first.
func asObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case json.RawMessage:
		var m map[string]any
		if json.Unmarshal(t, &m) != nil {
			return nil
		}
		return m
	case []byte:
		return asObject(json.RawMessage(t))
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
