package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	p := Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("default persona invalid: %v", err)
	}
	if p.Temperature != 0.9 {
		t.Errorf("expected temperature 0.9, got %v", p.Temperature)
	}
	if p.MaxTokens != 150 {
		t.Errorf("expected max tokens 150, got %d", p.MaxTokens)
	}
	if !strings.Contains(p.Instruction, "max 2-3 zinnen") {
		t.Error("expected instruction to cap the response length")
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	t.Parallel()

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Instruction != Default().Instruction {
		t.Error("expected default instruction")
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "persona.yaml")
	content := "name: Kaasbot\ntemperature: 0.4\nfallbacks:\n  provider_failure: \"Kaas is op!\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write persona file: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Name != "Kaasbot" {
		t.Errorf("expected name Kaasbot, got %q", p.Name)
	}
	if p.Temperature != 0.4 {
		t.Errorf("expected temperature 0.4, got %v", p.Temperature)
	}
	if p.MaxTokens != 150 {
		t.Errorf("expected default max tokens to survive, got %d", p.MaxTokens)
	}
	if p.Fallbacks.ProviderFailure != "Kaas is op!" {
		t.Errorf("unexpected provider failure fallback: %q", p.Fallbacks.ProviderFailure)
	}
	if p.Fallbacks.NotConfigured != DefaultNotConfigured {
		t.Errorf("expected default not-configured fallback, got %q", p.Fallbacks.NotConfigured)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"temperature": "temperature: 3.5\n",
		"max_tokens":  "max_tokens: 0\n",
		"syntax":      "name: [unterminated\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "persona.yaml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("write persona file: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
