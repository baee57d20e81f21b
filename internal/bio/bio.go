// Package bio looks up public background on a pilot for their record.
package bio

import (
	"context"
	"fmt"
	"strings"

	"air-jarvis/internal/config"
)

// Searcher returns a plain-text summary of what the web knows about name.
type Searcher interface {
	Search(ctx context.Context, name string) (string, error)
}

// Result is one hit from any provider.
type Result struct {
	Title       string
	Description string
	Snippets    []string
	URL         string
}

func query(name string) string {
	return name + " pilot aviation"
}

// Format renders web and news hits the way they are stored in personInfo.
func Format(name string, web, news []Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Information about %s:\n\n", name)

	if len(web) > 0 {
		b.WriteString("Web Results:\n")
		for i, r := range web {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
			fmt.Fprintf(&b, "   %s\n", r.Description)
			if len(r.Snippets) > 0 {
				fmt.Fprintf(&b, "   %s\n", strings.Join(r.Snippets, " "))
			}
			fmt.Fprintf(&b, "   Source: %s\n\n", r.URL)
		}
	}

	if len(news) > 0 {
		b.WriteString("\nRecent News:\n")
		for i, r := range news {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
			fmt.Fprintf(&b, "   %s\n", r.Description)
			fmt.Fprintf(&b, "   Source: %s\n\n", r.URL)
		}
	}
	return b.String()
}

// New returns the searcher selected by BIO_PROVIDER.
func New(ctx context.Context, cfg *config.Config) (Searcher, error) {
	switch cfg.BioProvider {
	case config.BioGoogle:
		return NewGoogle(ctx, cfg.GoogleAPIKey, cfg.GoogleSearchCX)
	case config.BioYou, "":
		return NewYou(cfg.YouAPIKey, cfg.YouBaseURL, cfg.HTTPTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown biography provider: %s", cfg.BioProvider)
	}
}
