package agent

import (
	"encoding/json"
	"strings"

	"a2a-chat-agent/internal/skill"
)

const structuredFormat = `
Return only a JSON object of the form {"title": string, "bulletPoints": [string]}.
The title must not start with '#'; each bullet point is one concise sentence without a leading dash.`

// structuredAnswer is the shape requested from the model for structured skills.
type structuredAnswer struct {
	Title        string   `json:"title"`
	BulletPoints []string `json:"bulletPoints"`
}

// Markdown renders the answer as a level-two title followed by bullets.
func (s structuredAnswer) Markdown() string {
	var sb strings.Builder
	sb.WriteString("## ")
	sb.WriteString(strings.TrimSpace(s.Title))
	for _, p := range s.BulletPoints {
		sb.WriteString("\n- ")
		sb.WriteString(strings.TrimSpace(p))
	}
	return sb.String()
}

// systemPrompt returns the instructions for p. Structured calls get the
// JSON format appended.
func systemPrompt(p skill.Profile, structured bool) string {
	if !structured {
		return p.Instructions
	}
	return strings.TrimRight(p.Instructions, "\n") + "\n" + structuredFormat
}

// renderStructured turns a structured model answer into Markdown. Answers
// that are not a usable JSON object are returned unchanged.
func renderStructured(raw string) string {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var ans structuredAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &ans); err != nil {
		return raw
	}
	if strings.TrimSpace(ans.Title) == "" && len(ans.BulletPoints) == 0 {
		return raw
	}
	return ans.Markdown()
}
