package a2a

import (
	"encoding/json"
	"testing"
)

func TestExtractUserText(t *testing.T) {
	tests := []struct {
		name   string
		params any
		want   string
	}{
		{"nil", nil, ""},
		{"not an object", "hello", ""},
		{"no message", map[string]any{}, ""},
		{"message not an object", map[string]any{"message": 3}, ""},
		{"no parts", map[string]any{"message": map[string]any{}}, ""},
		{"empty parts", map[string]any{"message": map[string]any{"parts": []any{}}}, ""},
		{"part not an object", map[string]any{"message": map[string]any{"parts": []any{"x"}}}, ""},
		{"part without text", map[string]any{"message": map[string]any{"parts": []any{map[string]any{"kind": "text"}}}}, ""},
		{
			"first part wins",
			map[string]any{"message": map[string]any{"parts": []any{
				map[string]any{"kind": "text", "text": "first"},
				map[string]any{"kind": "text", "text": "second"},
			}}},
			"first",
		},
		{"number text is stringified", map[string]any{"message": map[string]any{"parts": []any{map[string]any{"text": json.Number("42")}}}}, "42"},
		{"raw JSON", json.RawMessage(`{"message":{"parts":[{"kind":"text","text":"raw"}]}}`), "raw"},
		{"raw bytes", []byte(`{"message":{"parts":[{"text":"bytes"}]}}`), "bytes"},
		{"invalid raw JSON", json.RawMessage(`{"message":`), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractUserText(tt.params); got != tt.want {
				t.Errorf("ExtractUserText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractSkillID(t *testing.T) {
	tests := []struct {
		name   string
		params any
		want   string
	}{
		{"nil", nil, ""},
		{"no metadata", map[string]any{"message": map[string]any{}}, ""},
		{"metadata not an object", map[string]any{"metadata": []any{1}}, ""},
		{"missing key", map[string]any{"metadata": map[string]any{"other": "x"}}, ""},
		{"null value", map[string]any{"metadata": map[string]any{"skillId": nil}}, ""},
		{"present", map[string]any{"metadata": map[string]any{"skillId": "openai.research"}}, "openai.research"},
		{"non-string value", map[string]any{"metadata": map[string]any{"skillId": true}}, "true"},
		{"raw JSON", json.RawMessage(`{"metadata":{"skillId":"openai.brief"}}`), "openai.brief"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSkillID(tt.params); got != tt.want {
				t.Errorf("ExtractSkillID() = %q, want %q", got, tt.want)
			}
		})
	}
}
