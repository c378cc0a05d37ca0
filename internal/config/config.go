package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Skill identifiers shipped by default.
const (
	BriefSkillID    = "openai.brief"
	ResearchSkillID = "openai.research"
)

const (
	briefInstructions = `Respond as Markdown with a short title ('## ') and 3-5 concise bullet points.
Total length under 90 words. Do not echo the question.
`
	researchInstructions = `Act as a researcher. Write Markdown with:
- A single line title starting with '## '.
- 3-4 sections, each starting with '###', each containing 3-5 full sentences (short paragraphs).
- Avoid bullets unless a final 2-3 bullet summary at the end.
- Provide depth, trade-offs, and concrete examples. Target 220-320 words.
- Add a final section titled '### References' with 3-8 bullet links or citations for further reading.
Stay focused; do not repeat the user's question.
`
)

// LLMConfig selects the language-model backend.
type LLMConfig struct {
	Model string `yaml:"model"` // "provider:model"
}

// CardConfig holds the static fields of the published agent card.
type CardConfig struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	Version         string `yaml:"version"`
	ProtocolVersion string `yaml:"protocol_version"`
}

// SkillConfig describes one response profile.
type SkillConfig struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	Tags         []string      `yaml:"tags"`
	Examples     []string      `yaml:"examples"`
	Instructions string        `yaml:"instructions"`
	ChunkCount   int           `yaml:"chunk_count"`
	MaxWait      time.Duration `yaml:"max_wait"`
	Structured   bool          `yaml:"structured"`
}

// SecurityConfig controls Bearer JWT authentication.
type SecurityConfig struct {
	Enabled  bool   `yaml:"enabled"`
	JWKSURL  string `yaml:"jwks_url"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config holds the agent configuration loaded from agent.yaml.
type Config struct {
	Host         string         `yaml:"host"`
	Port         int            `yaml:"port"`
	URL          string         `yaml:"url"`
	LogLevel     string         `yaml:"log_level"`
	DataDir      string         `yaml:"data_dir"`
	LLM          LLMConfig      `yaml:"llm"`
	Card         CardConfig     `yaml:"card"`
	DefaultSkill string         `yaml:"default_skill"`
	Skills       []SkillConfig  `yaml:"skills"`
	Security     SecurityConfig `yaml:"security"`
	Metrics      MetricsConfig  `yaml:"metrics"`
}

// Load reads and parses the agent.yaml configuration file.
// ${VAR} and ${VAR:-default} references are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML text, applying defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 9999
	}
	if c.URL == "" {
		c.URL = fmt.Sprintf("http://localhost:%d/", c.Port)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "openai:gpt-4o-mini"
	}
	if c.Card.Name == "" {
		c.Card.Name = "Go A2A LLM Agent"
	}
	if c.Card.Description == "" {
		c.Card.Description = "Minimal A2A server that forwards user prompts to a language model (streaming supported)."
	}
	if c.Card.Version == "" {
		c.Card.Version = "1.0.0"
	}
	if c.Card.ProtocolVersion == "" {
		c.Card.ProtocolVersion = "0.3.0"
	}
	if len(c.Skills) == 0 {
		c.Skills = DefaultSkills()
	}
	for i := range c.Skills {
		if c.Skills[i].Name == "" {
			c.Skills[i].Name = c.Skills[i].ID
		}
	}
	if c.DefaultSkill == "" {
		c.DefaultSkill = BriefSkillID
	}
}

// DefaultSkills returns the brief and research profiles.
func DefaultSkills() []SkillConfig {
	return []SkillConfig{
		{
			ID:           BriefSkillID,
			Name:         "Quick bullets",
			Description:  "Fast, concise answers in Markdown bullets (90 words max).",
			Tags:         []string{"ai", "chat", "brief"},
			Examples:     []string{"In 3 bullets, what is HTTP streaming?"},
			Instructions: briefInstructions,
			ChunkCount:   120,
			MaxWait:      350 * time.Millisecond,
			Structured:   true,
		},
		{
			ID:           ResearchSkillID,
			Name:         "Researcher",
			Description:  "Longer, structured Markdown with sections and richer detail; streams in multiple chunks.",
			Tags:         []string{"ai", "chat", "research"},
			Examples:     []string{"Deep dive: pros/cons of HTTP streaming vs WebSockets."},
			Instructions: researchInstructions,
			ChunkCount:   80,
			MaxWait:      350 * time.Millisecond,
		},
	}
}

// Validate checks the invariants the rest of the program relies on.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		if strings.TrimSpace(s.ID) == "" {
			return errors.New("skill id is required")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate skill id %q", s.ID)
		}
		seen[s.ID] = true
		if s.ChunkCount <= 0 {
			return fmt.Errorf("skill %q: chunk_count must be positive", s.ID)
		}
		if s.MaxWait <= 0 {
			return fmt.Errorf("skill %q: max_wait must be positive", s.ID)
		}
	}
	if !seen[c.DefaultSkill] {
		return fmt.Errorf("default_skill %q is not a configured skill", c.DefaultSkill)
	}
	if c.Security.Enabled && c.Security.JWKSURL == "" {
		return errors.New("security.jwks_url is required when security is enabled")
	}
	if !strings.Contains(c.LLM.Model, ":") {
		return fmt.Errorf("llm.model %q: expected \"provider:model\"", c.LLM.Model)
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. A missing file is not an error; existing variables win.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		parts := envRef.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[3]
	})
}
