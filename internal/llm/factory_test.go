package llm

import (
	"context"
	"errors"
	"testing"

	"air-jarvis/internal/config"
)

func TestFactory_CreateClient(t *testing.T) {
	f := NewFactory(&config.Config{OpenAIAPIKey: "sk-test"})

	c, err := f.CreateClient("OpenAI", "gpt-test")
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if _, ok := c.(JSONClient); !ok {
		t.Fatalf("openai client should support JSON mode")
	}

	if _, err := f.CreateClient("yandex", "lite"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("yandex without credentials: expected ErrNotConfigured, got %v", err)
	}

	if _, err := f.CreateClient("claude", "x"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestFactory_CreateScoringClient(t *testing.T) {
	f := NewFactory(&config.Config{OpenAIAPIKey: "sk-test"})

	c, service, err := f.CreateScoringClient("yandex", "lite")
	if err != nil {
		t.Fatalf("unconfigured yandex should still yield a client: %v", err)
	}
	if service != "YandexGPT" {
		t.Fatalf("service = %q, want YandexGPT", service)
	}
	if _, ok := c.(*OpenAIClient); ok {
		t.Fatalf("unconfigured yandex must not fall back to OpenAI")
	}
	if _, err := c.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Generate: want ErrNotConfigured, got %v", err)
	}

	c, service, err = f.CreateScoringClient("openai", "gpt-test")
	if err != nil || service != "OpenAI" {
		t.Fatalf("openai: %v %q", err, service)
	}
	if _, ok := c.(JSONClient); !ok {
		t.Fatalf("openai scoring client should support JSON mode")
	}

	if _, _, err := f.CreateScoringClient("claude", "x"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
