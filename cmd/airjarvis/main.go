package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"air-jarvis/internal/alerts"
	"air-jarvis/internal/assess"
	"air-jarvis/internal/aviation"
	"air-jarvis/internal/bio"
	"air-jarvis/internal/config"
	"air-jarvis/internal/llm"
	"air-jarvis/internal/metrics"
	"air-jarvis/internal/pilots"
	"air-jarvis/internal/scheduler"
	"air-jarvis/internal/server"
	"air-jarvis/internal/weather"
)

var version = "dev"

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: .env file not loaded: %v", err)
	}
	cfg := config.New()

	store, err := pilots.NewStore(cfg.PilotsDir, pilots.WithLocking(cfg.RecordLocking))
	if err != nil {
		log.Fatalf("failed to open pilots directory: %v", err)
	}
	log.Printf("📁 Pilot records in %s (locking=%v)", store.Dir(), cfg.RecordLocking)

	factory := llm.NewFactory(cfg)
	scoreClient, scoreService, err := factory.CreateScoringClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("failed to create LLM client: %v", err)
	}
	log.Printf("🤖 Readiness scoring via %s", scoreService)

	searcher, err := bio.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to create biography searcher: %v", err)
	}
	forecasts, err := weather.NewClient(cfg.GeocodingBaseURL, cfg.WeatherBaseURL, cfg.GeocodeCacheSize, cfg.HTTPTimeout())
	if err != nil {
		log.Fatalf("failed to create weather client: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	deps := server.Deps{
		Store:    store,
		Flights:  aviation.NewClient(cfg.AviationAPIKey, cfg.AviationBaseURL, cfg.HTTPTimeout()),
		Weather:  forecasts,
		Bio:      searcher,
		Scorer:   assess.NewScorer(scoreClient, scoreService),
		Emotions: assess.NewEmotionAnalyzer(factory.CreateVisionClient(cfg.OpenAIVisionModel), "OpenAI"),
		Metrics:  m,
		Gatherer: reg,
		Version:  version,
	}

	if cfg.AlertsEnabled() {
		notifier, err := alerts.New(cfg.TelegramBotToken, cfg.AlertChatID, cfg.AlertScoreThreshold, m)
		if err != nil {
			log.Fatalf("failed to create Telegram notifier: %v", err)
		}
		deps.Alerts = notifier

		sched := scheduler.New(cfg.ReportSchedule)
		sched.SetReportFunction(alerts.DailyReport(store, notifier, nil))
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start report scheduler: %v", err)
		}
		defer sched.Stop()
		log.Printf("🔔 Alerts below %.0f to chat %d, next report at %s", cfg.AlertScoreThreshold, cfg.AlertChatID, sched.Next().Format("2006-01-02 15:04"))
	} else {
		log.Println("🔕 Telegram alerts disabled (TELEGRAM_BOT_TOKEN or ALERT_CHAT_ID not set)")
	}

	srv := server.New(deps)
	if err := server.Run(server.NewHTTPServer(cfg.HTTPAddr, srv.Handler(), cfg.HTTPTimeout())); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
