package bio

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"

	"air-jarvis/internal/config"
	apperrors "air-jarvis/internal/errors"
)

func TestFormat(t *testing.T) {
	got := Format("Jane Doe",
		[]Result{{Title: "Jane Doe, captain", Description: "Airline pilot", Snippets: []string{"Flew 10k hours.", "Instructor."}, URL: "https://a.example"}},
		[]Result{{Title: "Pilot honored", Description: "Award", URL: "https://n.example"}},
	)
	want := "Information about Jane Doe:\n\n" +
		"Web Results:\n" +
		"1. Jane Doe, captain\n" +
		"   Airline pilot\n" +
		"   Flew 10k hours. Instructor.\n" +
		"   Source: https://a.example\n\n" +
		"\nRecent News:\n" +
		"1. Pilot honored\n" +
		"   Award\n" +
		"   Source: https://n.example\n\n"
	if got != want {
		t.Fatalf("Format mismatch:\n%q\nwant\n%q", got, want)
	}
}

func TestFormat_NoResults(t *testing.T) {
	if got := Format("X", nil, nil); got != "Information about X:\n\n" {
		t.Fatalf("got %q", got)
	}
}

func TestYou_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "you-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("query") != "Jane Doe pilot aviation" || r.URL.Query().Get("count") != "5" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"results":{"web":[{"title":"T","description":"D","snippets":["s1"],"url":"https://u"}],"news":[]}}`)
	}))
	defer srv.Close()

	info, err := NewYou("you-key", srv.URL, 5*time.Second).Search(context.Background(), "Jane Doe")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !strings.Contains(info, "1. T\n   D\n   s1\n   Source: https://u") {
		t.Fatalf("unexpected info: %q", info)
	}
	if strings.Contains(info, "Recent News") {
		t.Fatalf("empty news must be omitted")
	}
}

func TestYou_Errors(t *testing.T) {
	_, err := NewYou("", "http://127.0.0.1:1", time.Second).Search(context.Background(), "Jane")
	if !apperrors.Is(err, apperrors.ErrExternalService) {
		t.Fatalf("expected not-configured error, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	_, err = NewYou("k", srv.URL, time.Second).Search(context.Background(), "Jane")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestGoogle_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customsearch/v1" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("q") != "Jane Doe pilot aviation" || q.Get("cx") != "engine" || q.Get("num") != "5" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"title":"Jane Doe","snippet":"Captain at X","link":"https://g.example"}]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewGoogle(ctx, "g-key", "engine", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}
	info, err := c.Search(ctx, "Jane Doe")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := "Information about Jane Doe:\n\nWeb Results:\n1. Jane Doe\n   Captain at X\n   Source: https://g.example\n\n"
	if info != want {
		t.Fatalf("got %q", info)
	}
}

func TestGoogle_NotConfigured(t *testing.T) {
	c, err := NewGoogle(context.Background(), "", "")
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}
	if _, err := c.Search(context.Background(), "Jane"); !apperrors.Is(err, apperrors.ErrExternalService) {
		t.Fatalf("expected not-configured error, got %v", err)
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, &config.Config{BioProvider: config.BioYou})
	if err != nil {
		t.Fatalf("New(you): %v", err)
	}
	if _, ok := s.(*YouClient); !ok {
		t.Fatalf("expected YouClient, got %T", s)
	}
	s, err = New(ctx, &config.Config{BioProvider: config.BioGoogle})
	if err != nil {
		t.Fatalf("New(google): %v", err)
	}
	if _, ok := s.(*GoogleClient); !ok {
		t.Fatalf("expected GoogleClient, got %T", s)
	}
	if _, err := New(ctx, &config.Config{BioProvider: "bing"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
