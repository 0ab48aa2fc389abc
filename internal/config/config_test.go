package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.MaxHistoryLength != 10 {
		t.Errorf("expected default history length 10, got %d", cfg.MaxHistoryLength)
	}
	if cfg.MaxTokens != 2000 {
		t.Errorf("expected default max tokens 2000, got %d", cfg.MaxTokens)
	}
	if cfg.DeepSeekBaseURL != "https://api.deepseek.com" {
		t.Errorf("unexpected default base URL %s", cfg.DeepSeekBaseURL)
	}
	if cfg.DeepSeekModel != "deepseek-chat" {
		t.Errorf("unexpected default model %s", cfg.DeepSeekModel)
	}
	if cfg.SystemPrompt == "" {
		t.Error("expected a default system prompt")
	}
	if !cfg.UseMemoryQueue {
		t.Error("expected memory queue by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_HISTORY_LENGTH", "5")
	t.Setenv("USE_MEMORY_QUEUE", "false")
	t.Setenv("DEEPSEEK_API_URL", "https://llm.internal/")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.MaxHistoryLength != 5 {
		t.Errorf("expected history length 5, got %d", cfg.MaxHistoryLength)
	}
	if cfg.UseMemoryQueue {
		t.Error("expected memory queue disabled")
	}
	if cfg.DeepSeekBaseURL != "https://llm.internal" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.DeepSeekBaseURL)
	}
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_TOKENS", "not-a-number")
	cfg := Load()
	if cfg.MaxTokens != 2000 {
		t.Errorf("expected fallback to default, got %d", cfg.MaxTokens)
	}
}
