package api

import (
	"a2a-chat-agent/internal/a2a"
	"a2a-chat-agent/internal/config"
	"a2a-chat-agent/internal/skill"
)

const (
	preferredTransport = "JSONRPC"
	inputMode          = "text/plain"
	outputMode         = "text/markdown"
)

// BuildAgentCard describes the agent and its skills. The card is built
// once at startup and served unchanged.
func BuildAgentCard(cfg *config.Config, profiles []skill.Profile) a2a.AgentCard {
	skills := make([]a2a.Skill, 0, len(profiles))
	for _, p := range profiles {
		skills = append(skills, a2a.Skill{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Tags:        p.Tags,
			Examples:    p.Examples,
			InputModes:  []string{inputMode},
			OutputModes: []string{outputMode},
		})
	}

	return a2a.AgentCard{
		ProtocolVersion:    cfg.Card.ProtocolVersion,
		Name:               cfg.Card.Name,
		Description:        cfg.Card.Description,
		URL:                cfg.URL,
		Version:            cfg.Card.Version,
		PreferredTransport: preferredTransport,
		Capabilities: a2a.Capabilities{
			Streaming: true,
		},
		DefaultInputModes:  []string{inputMode},
		DefaultOutputModes: []string{outputMode},
		Skills:             skills,
	}
}
