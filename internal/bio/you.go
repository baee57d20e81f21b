package bio

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	apperrors "air-jarvis/internal/errors"
)

const youService = "YOU"

// YouClient queries the You.com search index.
type YouClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewYou(apiKey, baseURL string, timeout time.Duration) *YouClient {
	return &YouClient{apiKey: apiKey, baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type youHit struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Snippets    []string `json:"snippets"`
	URL         string   `json:"url"`
}

func (h youHit) result() Result {
	return Result{Title: h.Title, Description: h.Description, Snippets: h.Snippets, URL: h.URL}
}

func (c *YouClient) Search(ctx context.Context, name string) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.NewNotConfigured(youService)
	}

	q := url.Values{}
	q.Set("query", query(name))
	q.Set("count", "5")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("YOU API request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return "", fmt.Errorf("YOU API error: %d %s", res.StatusCode, http.StatusText(res.StatusCode))
	}

	var body struct {
		Results struct {
			Web  []youHit `json:"web"`
			News []youHit `json:"news"`
		} `json:"results"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode YOU response: %w", err)
	}

	web := make([]Result, 0, len(body.Results.Web))
	for _, h := range body.Results.Web {
		web = append(web, h.result())
	}
	news := make([]Result, 0, len(body.Results.News))
	for _, h := range body.Results.News {
		news = append(news, h.result())
	}
	info := Format(name, web, news)
	log.Printf("🔎 YOU search for %q completed, length: %d", name, len(info))
	return info, nil
}
