package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"air-jarvis/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
	Timeout            time.Duration
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
		Timeout:            cfg.HTTPTimeout(),
	}
}

func (f *Factory) CreateClient(provider, model string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, model, f.OpenRouterReferrer, f.OpenRouterTitle, f.Timeout), nil
	case ProviderYandex:
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

// CreateVisionClient returns an image-capable client. Only the OpenAI
// compatible provider accepts images.
func (f *Factory) CreateVisionClient(model string) JSONClient {
	return NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, model, f.OpenRouterReferrer, f.OpenRouterTitle, f.Timeout)
}

// ServiceName is the label provider failures are reported under.
func ServiceName(provider string) string {
	if strings.EqualFold(provider, ProviderYandex) {
		return "YandexGPT"
	}
	return "OpenAI"
}

// CreateScoringClient is CreateClient for the readiness scorer. A provider
// without credentials still yields a client, whose every call fails with
// ErrNotConfigured, so the server can start and report the problem per request.
func (f *Factory) CreateScoringClient(provider, model string) (Client, string, error) {
	c, err := f.CreateClient(provider, model)
	if errors.Is(err, ErrNotConfigured) {
		return unconfiguredClient{}, ServiceName(provider), nil
	}
	if err != nil {
		return nil, "", err
	}
	return c, ServiceName(provider), nil
}

type unconfiguredClient struct{}

func (unconfiguredClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	return Response{}, ErrNotConfigured
}
