package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantHost  string
		wantPort  int
		wantModel string
		wantSkill int
		wantErr   bool
	}{
		{
			name:      "empty config uses defaults",
			yaml:      "",
			wantHost:  "0.0.0.0",
			wantPort:  9999,
			wantModel: "openai:gpt-4o-mini",
			wantSkill: 2,
		},
		{
			name:      "custom values override defaults",
			yaml:      "host: localhost\nport: 9090\nllm:\n  model: anthropic:claude-sonnet-4-5\n",
			wantHost:  "localhost",
			wantPort:  9090,
			wantModel: "anthropic:claude-sonnet-4-5",
			wantSkill: 2,
		},
		{
			name:      "custom skills replace defaults",
			yaml:      "default_skill: short\nskills:\n  - id: short\n    chunk_count: 4\n    max_wait: 100ms\n",
			wantHost:  "0.0.0.0",
			wantPort:  9999,
			wantModel: "openai:gpt-4o-mini",
			wantSkill: 1,
		},
		{
			name:    "invalid yaml returns error",
			yaml:    "invalid: yaml: [[[",
			wantErr: true,
		},
		{
			name:    "unknown default skill",
			yaml:    "default_skill: nope\n",
			wantErr: true,
		},
		{
			name:    "duplicate skill ids",
			yaml:    "default_skill: a\nskills:\n  - {id: a, chunk_count: 1, max_wait: 1s}\n  - {id: a, chunk_count: 1, max_wait: 1s}\n",
			wantErr: true,
		},
		{
			name:    "non-positive chunk count",
			yaml:    "default_skill: a\nskills:\n  - {id: a, chunk_count: 0, max_wait: 1s}\n",
			wantErr: true,
		},
		{
			name:    "security without jwks",
			yaml:    "security:\n  enabled: true\n",
			wantErr: true,
		},
		{
			name:    "model without provider",
			yaml:    "llm:\n  model: gpt-4o\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "agent.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", cfg.Host, tt.wantHost)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", cfg.Port, tt.wantPort)
			}
			if cfg.LLM.Model != tt.wantModel {
				t.Errorf("LLM.Model = %q, want %q", cfg.LLM.Model, tt.wantModel)
			}
			if len(cfg.Skills) != tt.wantSkill {
				t.Errorf("len(Skills) = %d, want %d", len(cfg.Skills), tt.wantSkill)
			}
		})
	}
}

func TestDefaultSkills(t *testing.T) {
	cfg := Default()
	if cfg.DefaultSkill != BriefSkillID {
		t.Errorf("DefaultSkill = %q, want %q", cfg.DefaultSkill, BriefSkillID)
	}

	byID := map[string]SkillConfig{}
	for _, s := range cfg.Skills {
		byID[s.ID] = s
	}
	brief, research := byID[BriefSkillID], byID[ResearchSkillID]
	if brief.ChunkCount != 120 || research.ChunkCount != 80 {
		t.Errorf("chunk counts = %d/%d, want 120/80", brief.ChunkCount, research.ChunkCount)
	}
	if brief.MaxWait != 350*time.Millisecond || research.MaxWait != 350*time.Millisecond {
		t.Errorf("max waits = %v/%v, want 350ms", brief.MaxWait, research.MaxWait)
	}
	if !brief.Structured || research.Structured {
		t.Error("only the brief skill should ask for structured answers")
	}
	if cfg.URL != "http://localhost:9999/" {
		t.Errorf("URL = %q", cfg.URL)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("AGENT_PORT", "7070")
	cfg, err := Parse([]byte("port: ${AGENT_PORT}\nllm:\n  model: ${AGENT_MODEL:-ollama:llama3}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Port)
	}
	if cfg.LLM.Model != "ollama:llama3" {
		t.Errorf("LLM.Model = %q, want default from reference", cfg.LLM.Model)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("A2A_TEST_ENV_VALUE=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("A2A_TEST_ENV_VALUE", "")
	os.Unsetenv("A2A_TEST_ENV_VALUE")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error: %v", err)
	}
	if got := os.Getenv("A2A_TEST_ENV_VALUE"); got != "from-file" {
		t.Errorf("A2A_TEST_ENV_VALUE = %q, want %q", got, "from-file")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/agent.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
