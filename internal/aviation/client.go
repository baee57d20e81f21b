// Package aviation looks up live flight status on aviationstack.
package aviation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	apperrors "air-jarvis/internal/errors"
)

const service = "Aviation"

var carrierLetters = regexp.MustCompile(`[A-Z]+`)

// Response is the aviationstack /flights envelope. Flight objects are kept
// opaque so every field the provider returns reaches the pilot record.
type Response struct {
	Pagination json.RawMessage   `json:"pagination,omitempty"`
	Data       []json.RawMessage `json:"data"`
	Error      *APIError         `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Lookup searches by IATA designator, then ICAO, then the bare flight
// number, returning the first response that has at least one flight.
func (c *Client) Lookup(ctx context.Context, designator string) (*Response, error) {
	designator = strings.ToUpper(strings.TrimSpace(designator))
	if designator == "" {
		return nil, apperrors.NewInvalidInput("Flight number required")
	}
	if c.apiKey == "" {
		return nil, apperrors.NewNotConfigured(service)
	}

	attempts := []struct{ param, value string }{
		{"flight_iata", designator},
		{"flight_icao", designator},
	}
	if num := carrierLetters.ReplaceAllString(designator, ""); num != "" {
		attempts = append(attempts, struct{ param, value string }{"flight_number", num})
	}

	for _, a := range attempts {
		log.Printf("✈️ aviationstack lookup %s=%s", a.param, a.value)
		resp, err := c.query(ctx, a.param, a.value)
		if err != nil {
			return nil, err
		}
		if resp.Error != nil {
			msg := resp.Error.Message
			if msg == "" {
				msg = "API error"
			}
			return nil, apperrors.NewInvalidInput(msg)
		}
		if len(resp.Data) > 0 {
			return resp, nil
		}
	}
	log.Printf("✈️ no flights found for %s after all attempts", designator)
	return nil, apperrors.NewFlightNotFound(designator)
}

func (c *Client) query(ctx context.Context, param, value string) (*Response, error) {
	q := url.Values{}
	q.Set("access_key", c.apiKey)
	q.Set(param, value)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.NewExternalService(service, err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalService(service, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apperrors.NewExternalService(service, err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		if res.StatusCode/100 != 2 {
			return nil, apperrors.NewExternalService(service, fmt.Errorf("status %d", res.StatusCode))
		}
		return nil, apperrors.NewExternalService(service, fmt.Errorf("decode response: %w", err))
	}
	// aviationstack reports key and quota problems as an error object,
	// sometimes with a non-2xx status.
	if out.Error == nil && res.StatusCode/100 != 2 {
		return nil, apperrors.NewExternalService(service, fmt.Errorf("status %d", res.StatusCode))
	}
	return &out, nil
}

// Airports returns the departure and arrival airport names of a flight
// object, used to geocode both ends.
func Airports(flight json.RawMessage) (departure, arrival string) {
	var f struct {
		Departure struct {
			Airport string `json:"airport"`
		} `json:"departure"`
		Arrival struct {
			Airport string `json:"airport"`
		} `json:"arrival"`
	}
	if err := json.Unmarshal(flight, &f); err != nil {
		return "", ""
	}
	return f.Departure.Airport, f.Arrival.Airport
}
