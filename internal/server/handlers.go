package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"air-jarvis/internal/aviation"
	apperrors "air-jarvis/internal/errors"
	"air-jarvis/internal/pilots"
)

func (s *Server) handleFlight(w http.ResponseWriter, r *http.Request) {
	flight := r.URL.Query().Get("flight")
	if strings.TrimSpace(flight) == "" {
		s.writeError(w, r, apperrors.NewInvalidInput("Flight number required"))
		return
	}
	resp, err := s.Flights.Lookup(r.Context(), flight)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	coords, err := s.Weather.Geocode(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coords)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		s.writeError(w, r, apperrors.NewInvalidInput("Latitude and longitude required"))
		return
	}
	report, err := s.Weather.Forecast(r.Context(), lat, lon)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type personRequest struct {
	Name       string          `json:"name"`
	FlightData json.RawMessage `json:"flightData"`
}

// handlePerson stores a flight the client already looked up (with its
// weather) against the person.
func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, r, apperrors.NewInvalidInput("Name required"))
		return
	}
	entry, err := pilots.NewFlightEntry(req.FlightData)
	if err != nil {
		s.writeError(w, r, apperrors.NewInvalidInput("Flight data required: "+err.Error()))
		return
	}

	res, err := s.Store.UpsertFromSearch(r.Context(), req.Name, entry, s.biography())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Data saved successfully",
		"filePath":    res.Path,
		"key":         res.Key,
		"created":     res.Created,
		"flightCount": res.FlightCount,
	})
}

type searchRequest struct {
	Name   string `json:"name"`
	Flight string `json:"flight"`
}

// handleSearch runs the whole search step server-side: flight lookup,
// weather at both airports, then the upsert. Weather is best effort.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, r, apperrors.NewInvalidInput("Name required"))
		return
	}
	ctx := r.Context()

	resp, err := s.Flights.Lookup(ctx, req.Flight)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resp == nil || len(resp.Data) == 0 {
		s.writeError(w, r, apperrors.NewFlightNotFound(req.Flight))
		return
	}
	flight := resp.Data[0]

	depAirport, arrAirport := aviation.Airports(flight)
	depWeather := s.weatherAt(ctx, depAirport)
	arrWeather := s.weatherAt(ctx, arrAirport)

	payload, err := withWeather(flight, depWeather, arrWeather)
	if err != nil {
		s.writeError(w, r, apperrors.NewExternalService("Aviation", err))
		return
	}
	entry, err := pilots.NewFlightEntry(payload)
	if err != nil {
		s.writeError(w, r, apperrors.NewExternalService("Aviation", err))
		return
	}

	res, err := s.Store.UpsertFromSearch(ctx, req.Name, entry, s.biography())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"flight":           flight,
		"departureWeather": depWeather,
		"arrivalWeather":   arrWeather,
		"filePath":         res.Path,
		"key":              res.Key,
		"created":          res.Created,
		"flightCount":      res.FlightCount,
	})
}

// weatherAt returns the forecast for a named place as JSON, or null.
func (s *Server) weatherAt(ctx context.Context, place string) json.RawMessage {
	if place == "" {
		return json.RawMessage("null")
	}
	coords, err := s.Weather.Geocode(ctx, place)
	if err != nil {
		log.Printf("[%s] ⚠️ geocoding %q failed: %v", RequestID(ctx), place, err)
		return json.RawMessage("null")
	}
	report, err := s.Weather.Forecast(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		log.Printf("[%s] ⚠️ weather for %q failed: %v", RequestID(ctx), place, err)
		return json.RawMessage("null")
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}

// withWeather merges the weather snapshots into the flight object.
func withWeather(flight, dep, arr json.RawMessage) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(flight, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = map[string]json.RawMessage{}
	}
	obj["departureWeather"] = dep
	obj["arrivalWeather"] = arr
	return json.Marshal(obj)
}

func (s *Server) biography() pilots.BiographyFunc {
	if s.Bio == nil {
		return nil
	}
	return s.Bio.Search
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"questions": pilots.Questions})
}

type questionnaireRequest struct {
	Name    string                     `json:"name"`
	Answers map[string]json.RawMessage `json:"answers"`
}

func (s *Server) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	var req questionnaireRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, r, apperrors.NewInvalidInput("Name required"))
		return
	}

	res, err := s.Store.SubmitQuestionnaire(r.Context(), req.Name, answerStrings(req.Answers))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msg := "Questionnaire saved successfully"
	if !res.Stored {
		msg = "Questionnaire already exists for this flight"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       msg,
		"filePath":      res.Path,
		"stored":        res.Stored,
		"flightIndex":   res.FlightIndex,
		"questionnaire": res.Questionnaire,
	})
}

// answerStrings keeps string answers as-is and any other JSON value as its
// literal text.
func answerStrings(raw map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(bytes.TrimSpace(v))
	}
	return out
}

type emotionRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (s *Server) handleEmotion(w http.ResponseWriter, r *http.Request) {
	var req emotionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Image) == "" {
		s.writeError(w, r, apperrors.NewInvalidInput("Name and image required"))
		return
	}

	log.Printf("[%s] 😶 Analyzing emotion for: %s", RequestID(r.Context()), req.Name)
	result, err := s.Emotions.Analyze(r.Context(), req.Image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stored, err := s.Store.CaptureEmotion(r.Context(), req.Name, result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "emotion": stored})
}

type analyzeRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, r, apperrors.NewInvalidInput("Name required"))
		return
	}

	res, err := s.Store.GetOrComputeAnalysis(r.Context(), req.Name, s.Scorer.Score)
	if err != nil {
		s.Metrics.ObserveAnalysis("failed", 0)
		s.writeError(w, r, err)
		return
	}

	if res.Cached {
		s.Metrics.ObserveAnalysis("cached", res.Analysis.Score)
	} else {
		s.Metrics.ObserveAnalysis("computed", res.Analysis.Score)
		s.notifyLowScore(r.Context(), req.Name, res.Analysis)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"analysis":  res.Analysis,
		"cached":    res.Cached,
		"persisted": res.Cached || res.Persisted,
	})
}

// notifyLowScore runs detached from the request so a slow Telegram call
// does not delay the response.
func (s *Server) notifyLowScore(ctx context.Context, name string, a pilots.ReadinessAnalysis) {
	if s.Alerts == nil {
		return
	}
	id := RequestID(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := s.Alerts.ReadinessAnalyzed(ctx, name, a); err != nil {
			log.Printf("[%s] ⚠️ low-score alert failed: %v", id, err)
		}
	}()
}

func (s *Server) handleListPilots(w http.ResponseWriter, r *http.Request) {
	list, err := s.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "pilots": list})
}

func (s *Server) handleGetPilot(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Store.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "record": rec})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "air-jarvis",
		"version":   s.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).String(),
		"pilotsDir": s.Store.Dir(),
	})
}
