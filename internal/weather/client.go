// Package weather geocodes airport names and fetches current conditions from
// open-meteo.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	apperrors "air-jarvis/internal/errors"
)

const service = "Open-Meteo"

const currentVariables = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,rain,weather_code,cloud_cover,wind_speed_10m,wind_direction_10m,wind_gusts_10m,visibility"

const defaultCacheSize = 512

type Coordinates struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Report is the trimmed forecast stored with a flight: hourly data and
// units are dropped.
type Report struct {
	Current   json.RawMessage `json:"current"`
	Latitude  json.RawMessage `json:"latitude"`
	Longitude json.RawMessage `json:"longitude"`
	Timezone  json.RawMessage `json:"timezone"`
}

type Client struct {
	geocodingURL string
	forecastURL  string
	http         *http.Client
	geocodes     *lru.Cache[string, Coordinates]
}

func NewClient(geocodingURL, forecastURL string, cacheSize int, timeout time.Duration) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, Coordinates](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &Client{
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		http:         &http.Client{Timeout: timeout},
		geocodes:     cache,
	}, nil
}

// Geocode resolves a city or airport name to its first open-meteo match.
// Successful lookups are cached; misses are not.
func (c *Client) Geocode(ctx context.Context, name string) (Coordinates, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Coordinates{}, apperrors.NewInvalidInput("Location name required")
	}
	cacheKey := strings.ToLower(name)
	if coords, ok := c.geocodes.Get(cacheKey); ok {
		return coords, nil
	}

	q := url.Values{}
	q.Set("name", name)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	var body struct {
		Results []Coordinates `json:"results"`
	}
	if err := c.getJSON(ctx, c.geocodingURL+"?"+q.Encode(), &body); err != nil {
		return Coordinates{}, err
	}
	if len(body.Results) == 0 {
		return Coordinates{}, apperrors.NewLocationUnknown(name)
	}

	coords := body.Results[0]
	c.geocodes.Add(cacheKey, coords)
	log.Printf("📍 geocoded %q -> %.4f,%.4f", name, coords.Latitude, coords.Longitude)
	return coords, nil
}

// Forecast returns current conditions at a point.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Report, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, apperrors.NewInvalidInput("Latitude and longitude required")
	}
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", currentVariables)
	q.Set("timezone", "auto")

	var report Report
	if err := c.getJSON(ctx, c.forecastURL+"?"+q.Encode(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ForPlace geocodes name and fetches its forecast.
func (c *Client) ForPlace(ctx context.Context, name string) (*Report, error) {
	coords, err := c.Geocode(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.Forecast(ctx, coords.Latitude, coords.Longitude)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return apperrors.NewExternalService(service, err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewExternalService(service, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return apperrors.NewExternalService(service, fmt.Errorf("status %d", res.StatusCode))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return apperrors.NewExternalService(service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
