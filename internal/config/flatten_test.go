package config

import (
	"testing"
)

func TestFlatten_Simple(t *testing.T) {
	m := map[string]any{
		"a": "hello",
		"b": 42.0,
	}
	got := Flatten(m)
	if got["a"] != "hello" {
		t.Errorf("expected a=hello, got %v", got["a"])
	}
	if got["b"] != 42.0 {
		t.Errorf("expected b=42, got %v", got["b"])
	}
	if len(got) != 2 {
		t.Errorf("expected 2 keys, got %d", len(got))
	}
}

func TestFlatten_Nested(t *testing.T) {
	m := map[string]any{
		"llm": map[string]any{
			"model":   "gpt-4o-mini",
			"api_key": "sk-test123",
		},
		"log_level": "info",
	}
	got := Flatten(m)
	if got["llm.model"] != "gpt-4o-mini" {
		t.Errorf("expected llm.model=gpt-4o-mini, got %v", got["llm.model"])
	}
	if got["llm.api_key"] != "sk-test123" {
		t.Errorf("expected llm.api_key=sk-test123, got %v", got["llm.api_key"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
	if len(got) != 3 {
		t.Errorf("expected 3 keys, got %d", len(got))
	}
}

func TestFlatten_DeeplyNested(t *testing.T) {
	m := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": "deep",
			},
		},
	}
	got := Flatten(m)
	if got["a.b.c"] != "deep" {
		t.Errorf("expected a.b.c=deep, got %v", got["a.b.c"])
	}
	if len(got) != 1 {
		t.Errorf("expected 1 key, got %d", len(got))
	}
}

func TestFlatten_EmptyMap(t *testing.T) {
	got := Flatten(map[string]any{})
	if len(got) != 0 {
		t.Errorf("expected 0 keys, got %d", len(got))
	}
}

func TestUnflatten_Nested(t *testing.T) {
	flat := map[string]any{
		"llm.model":   "gpt-4o-mini",
		"llm.api_key": "sk-test123",
		"log_level":   "info",
	}
	got := Unflatten(flat)
	llm, ok := got["llm"].(map[string]any)
	if !ok {
		t.Fatalf("expected llm to be map, got %T", got["llm"])
	}
	if llm["model"] != "gpt-4o-mini" {
		t.Errorf("expected llm.model=gpt-4o-mini, got %v", llm["model"])
	}
	if llm["api_key"] != "sk-test123" {
		t.Errorf("expected llm.api_key=sk-test123, got %v", llm["api_key"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
}

func TestRoundTrip_FlattenUnflatten(t *testing.T) {
	original := map[string]any{
		"data_dir":  "/home/test/.schoolagent",
		"log_level": "debug",
		"llm": map[string]any{
			"api_key": "sk-test123456",
			"model":   "gpt-4o",
		},
		"brave": map[string]any{
			"api_key": "brave-key-xyz",
		},
		"web": map[string]any{
			"cache_ttl_minutes": 240.0,
		},
	}

	flat := Flatten(original)
	restored := Unflatten(flat)

	if restored["data_dir"] != original["data_dir"] {
		t.Errorf("data_dir mismatch: %v != %v", restored["data_dir"], original["data_dir"])
	}
	llm := restored["llm"].(map[string]any)
	origLLM := original["llm"].(map[string]any)
	if llm["api_key"] != origLLM["api_key"] {
		t.Errorf("llm.api_key mismatch: %v != %v", llm["api_key"], origLLM["api_key"])
	}
	if llm["model"] != origLLM["model"] {
		t.Errorf("llm.model mismatch: %v != %v", llm["model"], origLLM["model"])
	}
	web := restored["web"].(map[string]any)
	if web["cache_ttl_minutes"] != 240.0 {
		t.Errorf("web.cache_ttl_minutes mismatch: %v", web["cache_ttl_minutes"])
	}
}

func TestMaskSecrets_AllSecrets(t *testing.T) {
	flat := map[string]any{
		"llm.model":     "gpt-4o-mini",
		"llm.api_key":   "sk-test123456",
		"brave.api_key": "BSA-abcdef1234",
		"log_level":     "info",
	}
	got := MaskSecrets(flat)

	if got["llm.model"] != "gpt-4o-mini" {
		t.Errorf("expected llm.model unchanged, got %v", got["llm.model"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
	if got["llm.api_key"] != "***3456" {
		t.Errorf("expected llm.api_key=***3456, got %v", got["llm.api_key"])
	}
	if got["brave.api_key"] != "***1234" {
		t.Errorf("expected brave.api_key=***1234, got %v", got["brave.api_key"])
	}
}

func TestMaskSecrets_EmptySecret(t *testing.T) {
	flat := map[string]any{
		"llm.api_key": "",
	}
	got := MaskSecrets(flat)
	if got["llm.api_key"] != "" {
		t.Errorf("expected empty string to remain empty, got %v", got["llm.api_key"])
	}
}

func TestMaskSecrets_ShortSecret(t *testing.T) {
	flat := map[string]any{
		"llm.api_key": "ab",
	}
	got := MaskSecrets(flat)
	if got["llm.api_key"] != "***ab" {
		t.Errorf("expected ***ab for short secret, got %v", got["llm.api_key"])
	}
}

func TestIsSecretKey(t *testing.T) {
	if !IsSecretKey("llm.api_key") || !IsSecretKey("brave.api_key") {
		t.Error("api keys must be secret")
	}
	if IsSecretKey("llm.model") {
		t.Error("llm.model is not a secret")
	}
}
