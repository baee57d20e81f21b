package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"air-jarvis/internal/aviation"
	apperrors "air-jarvis/internal/errors"
	"air-jarvis/internal/metrics"
	"air-jarvis/internal/pilots"
	"air-jarvis/internal/weather"
)

type fakeFlights struct{ flights map[string]string }

func (f fakeFlights) Lookup(ctx context.Context, designator string) (*aviation.Response, error) {
	if designator == "" {
		return nil, apperrors.NewInvalidInput("Flight number required")
	}
	obj, ok := f.flights[designator]
	if !ok {
		return nil, apperrors.NewFlightNotFound(designator)
	}
	return &aviation.Response{Data: []json.RawMessage{json.RawMessage(obj)}}, nil
}

type fakeWeather struct{}

func (fakeWeather) Geocode(ctx context.Context, name string) (weather.Coordinates, error) {
	switch name {
	case "":
		return weather.Coordinates{}, apperrors.NewInvalidInput("Location name required")
	case "Atlantis":
		return weather.Coordinates{}, apperrors.NewLocationUnknown(name)
	}
	return weather.Coordinates{Name: name, Latitude: 40.64, Longitude: -73.78}, nil
}

func (fakeWeather) Forecast(ctx context.Context, lat, lon float64) (*weather.Report, error) {
	return &weather.Report{
		Current:   json.RawMessage(`{"visibility":16000}`),
		Latitude:  json.RawMessage(`40.64`),
		Longitude: json.RawMessage(`-73.78`),
		Timezone:  json.RawMessage(`"America/New_York"`),
	}, nil
}

type fakeBio struct{ err error }

func (f fakeBio) Search(ctx context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Information about " + name + ":\n\n", nil
}

type fakeScorer struct {
	mu    sync.Mutex
	calls int
	score float64
	err   error
}

func (f *fakeScorer) Score(ctx context.Context, rec *pilots.Record) (pilots.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return pilots.Score{}, f.err
	}
	return pilots.Score{Score: f.score, Explanation: "Three sentences."}, nil
}

type fakeEmotions struct{}

func (fakeEmotions) Analyze(ctx context.Context, image string) (pilots.EmotionResult, error) {
	return pilots.EmotionResult{Emotion: "calm", StressLevel: 2, Analysis: "Relaxed."}, nil
}

type fakeAlerts struct{ sent chan string }

func (f fakeAlerts) ReadinessAnalyzed(ctx context.Context, name string, a pilots.ReadinessAnalysis) (bool, error) {
	f.sent <- name
	return true, nil
}

const jfkFlight = `{"flight_status":"scheduled","flight":{"iata":"AA100"},"departure":{"airport":"John F Kennedy International"},"arrival":{"airport":"Atlantis"}}`

type fixture struct {
	srv    *Server
	store  *pilots.Store
	scorer *fakeScorer
	alerts fakeAlerts
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := pilots.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	reg := prometheus.NewRegistry()
	f := &fixture{
		store:  store,
		scorer: &fakeScorer{score: 45},
		alerts: fakeAlerts{sent: make(chan string, 4)},
		reg:    reg,
	}
	f.srv = New(Deps{
		Store:    store,
		Flights:  fakeFlights{flights: map[string]string{"AA100": jfkFlight}},
		Weather:  fakeWeather{},
		Bio:      fakeBio{},
		Scorer:   f.scorer,
		Emotions: fakeEmotions{},
		Alerts:   f.alerts,
		Metrics:  metrics.MustNewMetrics(reg),
		Gatherer: reg,
		Version:  "test",
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rr, req)

	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, out
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, body map[string]any, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	if body["code"] != code {
		t.Fatalf("code = %v, want %s", body["code"], code)
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Fatalf("error message missing: %v", body)
	}
}

func TestSearch_StoresFlightWithWeather(t *testing.T) {
	f := newFixture(t)

	rr, body := f.do(t, "POST", "/api/search", map[string]string{"name": "Jane Doe", "flight": "AA100"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if body["created"] != true || body["flightCount"] != float64(1) || body["key"] != "janedoe" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["departureWeather"] == nil {
		t.Fatalf("departure weather should be present")
	}
	if body["arrivalWeather"] != nil {
		t.Fatalf("unknown arrival airport should yield null weather, got %v", body["arrivalWeather"])
	}

	rec, err := f.store.Get(context.Background(), "Jane Doe")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.HasPrefix(rec.PersonInfo, "Information about Jane Doe:") {
		t.Fatalf("personInfo = %q", rec.PersonInfo)
	}
	if len(rec.Flights) != 1 || len(rec.Flights[0].DepartureWeather) == 0 {
		t.Fatalf("flight weather not stored: %+v", rec.Flights)
	}
	var status string
	if ok, err := rec.Flights[0].Field("flight_status", &status); !ok || err != nil || status != "scheduled" {
		t.Fatalf("opaque flight fields not kept: %v %v %q", ok, err, status)
	}
}

func TestSearch_Errors(t *testing.T) {
	f := newFixture(t)

	rr, body := f.do(t, "POST", "/api/search", map[string]string{"name": "Jane", "flight": "ZZ1"})
	expectError(t, rr, body, http.StatusNotFound, "FLIGHT_NOT_FOUND")

	rr, body = f.do(t, "POST", "/api/search", map[string]string{"flight": "AA100"})
	expectError(t, rr, body, http.StatusBadRequest, "INVALID_INPUT")

	rr, body = f.do(t, "POST", "/api/search", `{"name":`)
	expectError(t, rr, body, http.StatusBadRequest, "INVALID_INPUT")
}

func TestPerson_Upsert(t *testing.T) {
	f := newFixture(t)

	payload := map[string]any{
		"name":       "Jane Doe",
		"flightData": json.RawMessage(`{"flight":{"iata":"AA100"},"departureWeather":{"current":{}},"analysis":{"score":1}}`),
	}
	rr, body := f.do(t, "POST", "/api/person", payload)
	if rr.Code != http.StatusOK || body["message"] != "Data saved successfully" {
		t.Fatalf("unexpected response %d: %v", rr.Code, body)
	}
	rr, body = f.do(t, "POST", "/api/person", payload)
	if rr.Code != http.StatusOK || body["created"] != false || body["flightCount"] != float64(2) {
		t.Fatalf("second upsert should append: %v", body)
	}

	rec, _ := f.store.Get(context.Background(), "Jane Doe")
	if rec.Flights[0].Analysis != nil {
		t.Fatalf("caller-supplied analysis must be stripped")
	}

	rr, body = f.do(t, "POST", "/api/person", map[string]any{"name": "Jane Doe"})
	expectError(t, rr, body, http.StatusBadRequest, "INVALID_INPUT")
}

func TestPerson_MissingBioCredential(t *testing.T) {
	f := newFixture(t)
	f.srv.Bio = fakeBio{err: apperrors.NewNotConfigured("YOU")}

	payload := map[string]any{"name": "Jane Doe", "flightData": json.RawMessage(`{"flight":{"iata":"AA100"}}`)}
	rr, body := f.do(t, "POST", "/api/person", payload)
	expectError(t, rr, body, http.StatusInternalServerError, "EXTERNAL_SERVICE")
	if body["error"] != "YOU API key not configured" {
		t.Fatalf("error = %v", body["error"])
	}
	if _, err := f.store.Get(context.Background(), "Jane Doe"); !apperrors.Is(err, apperrors.ErrRecordNotFound) {
		t.Fatalf("nothing should be stored, got %v", err)
	}

	f.srv.Bio = fakeBio{}
	rr, body = f.do(t, "POST", "/api/person", payload)
	if rr.Code != http.StatusOK || body["created"] != true {
		t.Fatalf("upsert once configured: %d %v", rr.Code, body)
	}
	rec, _ := f.store.Get(context.Background(), "Jane Doe")
	if !strings.HasPrefix(rec.PersonInfo, "Information about Jane Doe:") {
		t.Fatalf("personInfo = %q", rec.PersonInfo)
	}
}

func TestQuestionnaire(t *testing.T) {
	f := newFixture(t)

	rr, body := f.do(t, "POST", "/api/questionnaire", map[string]any{"name": "Jane Doe", "answers": map[string]any{"sleep": "7 hours"}})
	expectError(t, rr, body, http.StatusBadRequest, "NO_FLIGHT_FOUND")

	f.do(t, "POST", "/api/search", map[string]string{"name": "Jane Doe", "flight": "AA100"})

	rr, body = f.do(t, "POST", "/api/questionnaire", map[string]any{"name": "jane doe", "answers": map[string]any{"sleep": "7 hours", "stressLevel": 3}})
	if rr.Code != http.StatusOK || body["stored"] != true {
		t.Fatalf("first submission should store: %d %v", rr.Code, body)
	}
	rr, body = f.do(t, "POST", "/api/questionnaire", map[string]any{"name": "Jane Doe", "answers": map[string]any{"sleep": "2 hours"}})
	if rr.Code != http.StatusOK || body["stored"] != false {
		t.Fatalf("second submission should be a no-op: %d %v", rr.Code, body)
	}

	rec, _ := f.store.Get(context.Background(), "Jane Doe")
	q := rec.Flights[0].Questionnaire
	if q.Answer("sleep") != "7 hours" || q.Answer("stressLevel") != "3" {
		t.Fatalf("unexpected answers: %+v", q.Answers)
	}
}

func TestAnalyze_ComputeThenCache(t *testing.T) {
	f := newFixture(t)

	rr, body := f.do(t, "POST", "/api/analyze", map[string]string{"name": "Jane Doe"})
	expectError(t, rr, body, http.StatusNotFound, "RECORD_NOT_FOUND")

	f.do(t, "POST", "/api/search", map[string]string{"name": "Jane Doe", "flight": "AA100"})

	rr, body = f.do(t, "POST", "/api/analyze", map[string]string{"name": "Jane Doe"})
	if rr.Code != http.StatusOK || body["cached"] != false {
		t.Fatalf("first analysis: %d %v", rr.Code, body)
	}
	analysis := body["analysis"].(map[string]any)
	if analysis["score"] != float64(45) {
		t.Fatalf("score = %v", analysis["score"])
	}

	select {
	case name := <-f.alerts.sent:
		if name != "Jane Doe" {
			t.Fatalf("alert for %q", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a low-score alert")
	}

	rr, body = f.do(t, "POST", "/api/analyze", map[string]string{"name": "Jane Doe"})
	if rr.Code != http.StatusOK || body["cached"] != true {
		t.Fatalf("second analysis should be cached: %v", body)
	}
	if f.scorer.calls != 1 {
		t.Fatalf("scorer called %d times", f.scorer.calls)
	}
	select {
	case <-f.alerts.sent:
		t.Fatalf("cached analysis must not alert")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAnalyze_ScorerFailure(t *testing.T) {
	f := newFixture(t)
	f.scorer.err = apperrors.NewNotConfigured("OpenAI")
	f.do(t, "POST", "/api/search", map[string]string{"name": "Jane Doe", "flight": "AA100"})

	rr, body := f.do(t, "POST", "/api/analyze", map[string]string{"name": "Jane Doe"})
	expectError(t, rr, body, http.StatusInternalServerError, "EXTERNAL_SERVICE")
	if body["error"] != "OpenAI API key not configured" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestEmotion(t *testing.T) {
	f := newFixture(t)

	rr, body := f.do(t, "POST", "/api/emotion", map[string]string{"name": "Jane Doe"})
	expectError(t, rr, body, http.StatusBadRequest, "INVALID_INPUT")

	rr, body = f.do(t, "POST", "/api/emotion", map[string]string{"name": "Jane Doe", "image": "data:image/jpeg;base64,AAAA"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	emotion := body["emotion"].(map[string]any)
	if emotion["emotion"] != "calm" || emotion["capturedAt"] == "" {
		t.Fatalf("unexpected emotion: %v", emotion)
	}

	// Emotion capture creates the record on its own.
	rec, err := f.store.Get(context.Background(), "Jane Doe")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.LatestEmotionAnalysis == nil || len(rec.Flights) != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestFlightGeocodeWeather(t *testing.T) {
	f := newFixture(t)

	rr, body := f.do(t, "GET", "/api/flight", nil)
	expectError(t, rr, body, http.StatusBadRequest, "INVALID_INPUT")

	rr, body = f.do(t, "GET", "/api/flight?flight=AA100", nil)
	if rr.Code != http.StatusOK || len(body["data"].([]any)) != 1 {
		t.Fatalf("flight lookup: %d %v", rr.Code, body)
	}

	rr, body = f.do(t, "GET", "/api/geocode?name=Atlantis", nil)
	expectError(t, rr, body, http.StatusNotFound, "LOCATION_UNKNOWN")

	rr, body = f.do(t, "GET", "/api/weather?lat=abc&lon=1", nil)
	expectError(t, rr, body, http.StatusBadRequest, "INVALID_INPUT")

	rr, body = f.do(t, "GET", "/api/weather?lat=40.64&lon=-73.78", nil)
	if rr.Code != http.StatusOK || body["timezone"] != "America/New_York" {
		t.Fatalf("weather: %d %v", rr.Code, body)
	}
}

func TestPilots_GetAndList(t *testing.T) {
	f := newFixture(t)

	rr, body := f.do(t, "GET", "/api/pilots/Jane%20Doe", nil)
	expectError(t, rr, body, http.StatusNotFound, "RECORD_NOT_FOUND")

	f.do(t, "POST", "/api/search", map[string]string{"name": "Jane Doe", "flight": "AA100"})

	rr, body = f.do(t, "GET", "/api/pilots/Jane%20Doe", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["record"].(map[string]any)["name"] != "Jane Doe" {
		t.Fatalf("unexpected record: %v", body)
	}

	rr, body = f.do(t, "GET", "/api/pilots", nil)
	if rr.Code != http.StatusOK || len(body["pilots"].([]any)) != 1 {
		t.Fatalf("list: %d %v", rr.Code, body)
	}
}

func TestQuestionsCatalog(t *testing.T) {
	f := newFixture(t)
	rr, body := f.do(t, "GET", "/api/questions", nil)
	if rr.Code != http.StatusOK || len(body["questions"].([]any)) != len(pilots.Questions) {
		t.Fatalf("questions: %d %v", rr.Code, body)
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t)

	rr, _ := f.do(t, "GET", "/api/status", nil)
	if _, err := uuid.Parse(rr.Header().Get("X-Request-ID")); err != nil {
		t.Fatalf("expected generated uuid, got %q", rr.Header().Get("X-Request-ID"))
	}

	id := uuid.NewString()
	req := httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("X-Request-ID", id)
	rr = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-ID") != id {
		t.Fatalf("caller id not kept")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rr, _ := f.do(t, "GET", "/api/analyze", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, "GET", "/api/status", nil)
	f.do(t, "POST", "/api/analyze", map[string]string{"name": "Nobody"})

	rr, _ := f.do(t, "GET", "/metrics", nil)
	out := rr.Body.String()
	for _, want := range []string{
		`air_jarvis_http_requests_total{code="200",route="GET /api/status"} 1`,
		`air_jarvis_http_errors_total{code="RECORD_NOT_FOUND"} 1`,
		`air_jarvis_readiness_analyses_total{result="failed"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics missing %q:\n%s", want, out)
		}
	}
}

func TestWriteError_PlainError(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()
	f.srv.writeError(rr, httptest.NewRequest("GET", "/x", nil), errors.New("boom"))
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), `"code":"INTERNAL"`) {
		t.Fatalf("unexpected: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	f.srv.writeError(rr, httptest.NewRequest("GET", "/x", nil), context.DeadlineExceeded)
	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("deadline status = %d", rr.Code)
	}
}
