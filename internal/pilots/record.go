package pilots

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Record is the per-person document stored as <key>.json.
// Flights are appended in search order and never reordered or removed.
type Record struct {
	Name                  string         `json:"name"`
	PersonInfo            string         `json:"personInfo"`
	Flights               []FlightEntry  `json:"flights"`
	LatestEmotionAnalysis *EmotionResult `json:"latestEmotionAnalysis,omitempty"`
	LastUpdated           time.Time      `json:"lastUpdated"`
	CreatedAt             *time.Time     `json:"createdAt,omitempty"`
}

// CurrentFlight returns the most recently appended flight entry, or nil.
func (r *Record) CurrentFlight() *FlightEntry {
	if len(r.Flights) == 0 {
		return nil
	}
	return &r.Flights[len(r.Flights)-1]
}

// Clone returns a copy that shares no mutable state with r.
func (r *Record) Clone() *Record {
	out := *r
	out.Flights = make([]FlightEntry, len(r.Flights))
	for i := range r.Flights {
		out.Flights[i] = r.Flights[i].clone()
	}
	if r.LatestEmotionAnalysis != nil {
		e := *r.LatestEmotionAnalysis
		out.LatestEmotionAnalysis = &e
	}
	if r.CreatedAt != nil {
		c := *r.CreatedAt
		out.CreatedAt = &c
	}
	return &out
}

// EmotionResult is the outcome of one emotion capture.
type EmotionResult struct {
	Emotion     string    `json:"emotion"`
	StressLevel float64   `json:"stressLevel"`
	Analysis    string    `json:"analysis"`
	CapturedAt  time.Time `json:"capturedAt"`
}

// ReadinessAnalysis is the stored readiness score of one flight entry.
type ReadinessAnalysis struct {
	Score       float64   `json:"score"`
	Explanation string    `json:"explanation"`
	AnalyzedAt  time.Time `json:"analyzedAt"`
}

// UnmarshalJSON accepts numeric strings for stressLevel, as found in
// documents holding raw model output.
func (e *EmotionResult) UnmarshalJSON(data []byte) error {
	type plain EmotionResult
	var aux struct {
		plain
		StressLevel json.RawMessage `json:"stressLevel"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = EmotionResult(aux.plain)
	e.StressLevel, _ = ParseNumber(aux.StressLevel)
	return nil
}

// UnmarshalJSON accepts numeric strings such as "82" or "7/10" for score.
func (a *ReadinessAnalysis) UnmarshalJSON(data []byte) error {
	type plain ReadinessAnalysis
	var aux struct {
		plain
		Score json.RawMessage `json:"score"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = ReadinessAnalysis(aux.plain)
	a.Score, _ = ParseNumber(aux.Score)
	return nil
}

// Score is what a readiness scorer returns before it is stamped and stored.
type Score struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// Questionnaire holds the answers of one pre-flight questionnaire.
// It serializes flat: {"sleep": "7 hours", ..., "completedAt": "..."}.
type Questionnaire struct {
	Answers     map[string]string
	CompletedAt time.Time
}

// Answer returns the answer for a question id.
func (q *Questionnaire) Answer(id string) string {
	if q == nil {
		return ""
	}
	return q.Answers[id]
}

const completedAtKey = "completedAt"

func (q Questionnaire) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(q.Answers)+1)
	for k, v := range q.Answers {
		out[k] = v
	}
	out[completedAtKey] = q.CompletedAt
	return json.Marshal(out)
}

func (q *Questionnaire) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.Answers = make(map[string]string, len(raw))
	for k, v := range raw {
		if k == completedAtKey {
			if err := json.Unmarshal(v, &q.CompletedAt); err != nil {
				return fmt.Errorf("questionnaire completedAt: %w", err)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			// non-string answers are kept in their JSON text form
			s = string(bytes.TrimSpace(v))
		}
		q.Answers[k] = s
	}
	return nil
}

// FlightEntry is one flight search plus everything attached to it later.
// Fields holds the flight-status payload as received; the store never
// interprets it, and the owned keys below take precedence over it.
type FlightEntry struct {
	Fields           map[string]json.RawMessage
	DepartureWeather json.RawMessage
	ArrivalWeather   json.RawMessage
	SearchedAt       time.Time
	Questionnaire    *Questionnaire
	EmotionAnalysis  *EmotionResult
	Analysis         *ReadinessAnalysis
}

const (
	keyDepartureWeather = "departureWeather"
	keyArrivalWeather   = "arrivalWeather"
	keySearchedAt       = "searchedAt"
	keyQuestionnaire    = "questionnaire"
	keyEmotionAnalysis  = "emotionAnalysis"
	keyAnalysis         = "analysis"
)

// NewFlightEntry builds an entry from a caller-supplied JSON object. Weather
// snapshots embedded in the payload are kept; any questionnaire, emotion,
// analysis or searchedAt keys in the payload are discarded unread.
func NewFlightEntry(payload json.RawMessage) (FlightEntry, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return FlightEntry{}, fmt.Errorf("flight payload is empty")
	}
	if trimmed[0] != '{' {
		return FlightEntry{}, fmt.Errorf("flight payload must be a JSON object")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return FlightEntry{}, fmt.Errorf("decode flight payload: %w", err)
	}
	for _, k := range []string{keySearchedAt, keyQuestionnaire, keyEmotionAnalysis, keyAnalysis} {
		delete(raw, k)
	}

	var e FlightEntry
	if b := raw[keyDepartureWeather]; !isNullJSON(b) {
		e.DepartureWeather = b
	}
	delete(raw, keyDepartureWeather)
	if b := raw[keyArrivalWeather]; !isNullJSON(b) {
		e.ArrivalWeather = b
	}
	delete(raw, keyArrivalWeather)
	e.Fields = raw
	return e, nil
}

// Field decodes one passthrough field into v. It reports false if the field is absent.
func (e *FlightEntry) Field(name string, v any) (bool, error) {
	raw, ok := e.Fields[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (e FlightEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Fields)+6)
	for k, v := range e.Fields {
		out[k] = v
	}
	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("flight entry %s: %w", key, err)
		}
		out[key] = b
		return nil
	}
	if !isNullJSON(e.DepartureWeather) {
		out[keyDepartureWeather] = e.DepartureWeather
	}
	if !isNullJSON(e.ArrivalWeather) {
		out[keyArrivalWeather] = e.ArrivalWeather
	}
	if !e.SearchedAt.IsZero() {
		if err := put(keySearchedAt, e.SearchedAt); err != nil {
			return nil, err
		}
	}
	if e.Questionnaire != nil {
		if err := put(keyQuestionnaire, e.Questionnaire); err != nil {
			return nil, err
		}
	}
	if e.EmotionAnalysis != nil {
		if err := put(keyEmotionAnalysis, e.EmotionAnalysis); err != nil {
			return nil, err
		}
	}
	if e.Analysis != nil {
		if err := put(keyAnalysis, e.Analysis); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

func (e *FlightEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = FlightEntry{}
	take := func(key string, v any) error {
		b, ok := raw[key]
		delete(raw, key)
		if !ok || isNullJSON(b) {
			return nil
		}
		if err := json.Unmarshal(b, v); err != nil {
			return fmt.Errorf("flight entry %s: %w", key, err)
		}
		return nil
	}
	if b, ok := raw[keyDepartureWeather]; ok && !isNullJSON(b) {
		e.DepartureWeather = b
	}
	delete(raw, keyDepartureWeather)
	if b, ok := raw[keyArrivalWeather]; ok && !isNullJSON(b) {
		e.ArrivalWeather = b
	}
	delete(raw, keyArrivalWeather)

	if err := take(keySearchedAt, &e.SearchedAt); err != nil {
		return err
	}
	var q Questionnaire
	if _, ok := raw[keyQuestionnaire]; ok && !isNullJSON(raw[keyQuestionnaire]) {
		if err := take(keyQuestionnaire, &q); err != nil {
			return err
		}
		e.Questionnaire = &q
	}
	delete(raw, keyQuestionnaire)
	var em EmotionResult
	if _, ok := raw[keyEmotionAnalysis]; ok && !isNullJSON(raw[keyEmotionAnalysis]) {
		if err := take(keyEmotionAnalysis, &em); err != nil {
			return err
		}
		e.EmotionAnalysis = &em
	}
	delete(raw, keyEmotionAnalysis)
	var an ReadinessAnalysis
	if _, ok := raw[keyAnalysis]; ok && !isNullJSON(raw[keyAnalysis]) {
		if err := take(keyAnalysis, &an); err != nil {
			return err
		}
		e.Analysis = &an
	}
	delete(raw, keyAnalysis)

	e.Fields = raw
	return nil
}

func (e FlightEntry) clone() FlightEntry {
	out := e
	if e.Fields != nil {
		out.Fields = make(map[string]json.RawMessage, len(e.Fields))
		for k, v := range e.Fields {
			out.Fields[k] = append(json.RawMessage(nil), v...)
		}
	}
	out.DepartureWeather = append(json.RawMessage(nil), e.DepartureWeather...)
	out.ArrivalWeather = append(json.RawMessage(nil), e.ArrivalWeather...)
	if len(out.DepartureWeather) == 0 {
		out.DepartureWeather = nil
	}
	if len(out.ArrivalWeather) == 0 {
		out.ArrivalWeather = nil
	}
	if e.Questionnaire != nil {
		q := Questionnaire{CompletedAt: e.Questionnaire.CompletedAt, Answers: make(map[string]string, len(e.Questionnaire.Answers))}
		for k, v := range e.Questionnaire.Answers {
			q.Answers[k] = v
		}
		out.Questionnaire = &q
	}
	if e.EmotionAnalysis != nil {
		em := *e.EmotionAnalysis
		out.EmotionAnalysis = &em
	}
	if e.Analysis != nil {
		an := *e.Analysis
		out.Analysis = &an
	}
	return out
}

func isNullJSON(b json.RawMessage) bool {
	t := bytes.TrimSpace(b)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
