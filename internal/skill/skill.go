// Package skill maps skill identifiers to response profiles.
package skill

import (
	"fmt"
	"strings"
	"time"

	"a2a-chat-agent/internal/config"
)

// Profile bundles the instructions and streaming-buffer parameters of a skill.
type Profile struct {
	ID           string
	Name         string
	Description  string
	Tags         []string
	Examples     []string
	Instructions string
	// ChunkCount is the number of fragments that closes an aggregated chunk.
	ChunkCount int
	// MaxWait bounds how long the first fragment of a chunk may wait.
	MaxWait time.Duration
	// Structured asks single-shot answers for a title and bullet points.
	Structured bool
}

// Resolver resolves skill identifiers. It is immutable and safe for
// concurrent use.
type Resolver struct {
	profiles map[string]Profile
	order    []string
	fallback Profile
}

// NewResolver builds a resolver over the configured skills.
// defaultID names the profile used for blank or unknown identifiers.
func NewResolver(skills []config.SkillConfig, defaultID string) (*Resolver, error) {
	r := &Resolver{profiles: make(map[string]Profile, len(skills))}
	for _, s := range skills {
		if _, dup := r.profiles[s.ID]; dup {
			return nil, fmt.Errorf("duplicate skill id %q", s.ID)
		}
		r.profiles[s.ID] = Profile{
			ID:           s.ID,
			Name:         s.Name,
			Description:  s.Description,
			Tags:         append([]string(nil), s.Tags...),
			Examples:     append([]string(nil), s.Examples...),
			Instructions: s.Instructions,
			ChunkCount:   s.ChunkCount,
			MaxWait:      s.MaxWait,
			Structured:   s.Structured,
		}
		r.order = append(r.order, s.ID)
	}

	fallback, ok := r.profiles[defaultID]
	if !ok {
		return nil, fmt.Errorf("default skill %q is not configured", defaultID)
	}
	r.fallback = fallback
	return r, nil
}

// Resolve returns the profile for id. Blank and unknown identifiers
// resolve to the default profile.
func (r *Resolver) Resolve(id string) Profile {
	if strings.TrimSpace(id) == "" {
		return r.fallback
	}
	if p, ok := r.profiles[id]; ok {
		return p
	}
	return r.fallback
}

// Default returns the fallback profile.
func (r *Resolver) Default() Profile { return r.fallback }

// Profiles returns all profiles in configuration order.
func (r *Resolver) Profiles() []Profile {
	out := make([]Profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.profiles[id])
	}
	return out
}
