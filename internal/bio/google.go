package bio

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	apperrors "air-jarvis/internal/errors"
)

const googleService = "Google Custom Search"

// GoogleClient queries a Programmable Search Engine.
type GoogleClient struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogle builds the client. Extra options are for tests (endpoint, HTTP
// client).
func NewGoogle(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleClient, error) {
	if apiKey == "" || cx == "" {
		return &GoogleClient{}, nil
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}
	return &GoogleClient{svc: svc, cx: cx}, nil
}

func (c *GoogleClient) Search(ctx context.Context, name string) (string, error) {
	if c.svc == nil {
		return "", apperrors.NewNotConfigured(googleService)
	}
	res, err := c.svc.Cse.List().Q(query(name)).Cx(c.cx).Num(5).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("custom search: %w", err)
	}

	web := make([]Result, 0, len(res.Items))
	for _, item := range res.Items {
		web = append(web, Result{Title: item.Title, Description: item.Snippet, URL: item.Link})
	}
	info := Format(name, web, nil)
	log.Printf("🔎 Google search for %q completed, results: %d", name, len(web))
	return info, nil
}
