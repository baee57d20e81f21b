// Package server exposes the pilot record store and its collaborators over a
// JSON HTTP API.
package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"air-jarvis/internal/aviation"
	"air-jarvis/internal/bio"
	"air-jarvis/internal/metrics"
	"air-jarvis/internal/pilots"
	"air-jarvis/internal/weather"
)

type FlightLookup interface {
	Lookup(ctx context.Context, designator string) (*aviation.Response, error)
}

type WeatherService interface {
	Geocode(ctx context.Context, name string) (weather.Coordinates, error)
	Forecast(ctx context.Context, lat, lon float64) (*weather.Report, error)
}

type Scorer interface {
	Score(ctx context.Context, rec *pilots.Record) (pilots.Score, error)
}

type EmotionAnalyzer interface {
	Analyze(ctx context.Context, image string) (pilots.EmotionResult, error)
}

// AlertNotifier is told about every freshly computed analysis.
type AlertNotifier interface {
	ReadinessAnalyzed(ctx context.Context, name string, a pilots.ReadinessAnalysis) (bool, error)
}

// Deps are the collaborators behind the API. Alerts, Metrics and Gatherer
// may be nil.
type Deps struct {
	Store    *pilots.Store
	Flights  FlightLookup
	Weather  WeatherService
	Bio      bio.Searcher
	Scorer   Scorer
	Emotions EmotionAnalyzer
	Alerts   AlertNotifier
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Version  string
}

type Server struct {
	Deps
	startTime time.Time
	handler   http.Handler
}

func New(d Deps) *Server {
	s := &Server{Deps: d, startTime: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/flight", s.handleFlight)
	mux.HandleFunc("GET /api/geocode", s.handleGeocode)
	mux.HandleFunc("GET /api/weather", s.handleWeather)
	mux.HandleFunc("POST /api/person", s.handlePerson)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/questions", s.handleQuestions)
	mux.HandleFunc("POST /api/questionnaire", s.handleQuestionnaire)
	mux.HandleFunc("POST /api/emotion", s.handleEmotion)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/pilots", s.handleListPilots)
	mux.HandleFunc("GET /api/pilots/{name}", s.handleGetPilot)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(d.Gatherer))
	}

	s.handler = requestID(s.observe(mux))
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// NewHTTPServer wraps the handler with the listener timeouts. The write
// timeout leaves room for slow model calls.
func NewHTTPServer(addr string, h http.Handler, upstreamTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3*upstreamTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("🌐 Air Jarvis API listening on %s", srv.Addr)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

type ctxKey int

const requestIDKey ctxKey = 0

// RequestID returns the id assigned by the middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID tags every request with X-Request-ID, keeping a caller-supplied one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe logs and measures each request. It must wrap the mux directly so
// r.Pattern is visible after dispatch.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.Metrics.ObserveRequest(route, rec.status, elapsed)
		log.Printf("[%s] %s %s -> %d (%s)", RequestID(r.Context()), r.Method, r.URL.Path, rec.status, elapsed.Round(time.Millisecond))
	})
}
