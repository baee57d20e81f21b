package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type BioProvider string

const (
	BioYou    BioProvider = "you"
	BioGoogle BioProvider = "google"
)

type Config struct {
	// HTTP server
	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":3000"`
	HTTPTimeoutSec int    `env:"HTTP_TIMEOUT" envDefault:"30"`

	// Storage
	PilotsDir     string `env:"PILOTS_DIR" envDefault:"pilots"`
	RecordLocking bool   `env:"RECORD_LOCKING" envDefault:"false"`

	// LLM settings
	LLMProvider       LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey      string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string      `env:"OPENAI_BASE_URL"`
	OpenAIModel       string      `env:"OPENAI_MODEL" envDefault:"gpt-5.1-2025-11-13"`
	OpenAIVisionModel string      `env:"OPENAI_VISION_MODEL" envDefault:"gpt-5.1-2025-11-13"`
	YandexOAuthToken  string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID    string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Flight status
	AviationAPIKey  string `env:"AVIATION_API_KEY"`
	AviationBaseURL string `env:"AVIATION_BASE_URL" envDefault:"http://api.aviationstack.com/v1/flights"`

	// Biography search
	BioProvider    BioProvider `env:"BIO_PROVIDER" envDefault:"you"`
	YouAPIKey      string      `env:"YOU_API_KEY"`
	YouBaseURL     string      `env:"YOU_BASE_URL" envDefault:"https://api.ydc-index.io/v1/search"`
	GoogleAPIKey   string      `env:"GOOGLE_API_KEY"`
	GoogleSearchCX string      `env:"GOOGLE_SEARCH_CX"`

	// Weather
	GeocodingBaseURL string `env:"GEOCODING_BASE_URL" envDefault:"https://geocoding-api.open-meteo.com/v1/search"`
	WeatherBaseURL   string `env:"WEATHER_BASE_URL" envDefault:"https://api.open-meteo.com/v1/forecast"`
	GeocodeCacheSize int    `env:"GEOCODE_CACHE_SIZE" envDefault:"512"`

	// Alerts and reports
	TelegramBotToken    string  `env:"TELEGRAM_BOT_TOKEN"`
	AlertChatID         int64   `env:"ALERT_CHAT_ID"`
	AlertScoreThreshold float64 `env:"ALERT_SCORE_THRESHOLD" envDefault:"60"`
	ReportSchedule      string  `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`
}

// Parse reads the configuration from the environment.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// HTTPTimeout is the per-call timeout for outbound collaborator requests.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// AlertsEnabled reports whether a Telegram destination is configured.
func (c *Config) AlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.AlertChatID != 0
}
