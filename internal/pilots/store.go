package pilots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "air-jarvis/internal/errors"
)

const recordExt = ".json"

// BiographyFunc resolves free-text background for a person. The store calls
// it only when a flight search creates a new record.
type BiographyFunc func(ctx context.Context, name string) (string, error)

// ScoreFunc computes a readiness score from a snapshot of the whole record.
type ScoreFunc func(ctx context.Context, rec *Record) (Score, error)

// Store is a file-backed document store with one JSON file per identity key.
//
// Every operation is a full read-modify-write of one file. Without locking
// (the default) two operations racing on the same identity can interleave
// and the later write silently discards the earlier one. WithLocking holds an
// advisory file lock for the duration of each cycle.
type Store struct {
	dir     string
	locking bool
	now     func() time.Time
}

// Option customizes the store.
type Option func(*Store)

// WithLocking enables per-identity exclusive file locks around each operation.
func WithLocking(enabled bool) Option {
	return func(s *Store) {
		s.locking = enabled
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates the directory if needed and returns a store rooted there.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("pilots dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure pilots dir: %w", err)
	}
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory holding the record files.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path backing a display name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, Key(name)+recordExt)
}

// UpsertResult describes the outcome of UpsertFromSearch.
type UpsertResult struct {
	Path        string `json:"filePath"`
	Key         string `json:"key"`
	Created     bool   `json:"created"`
	FlightCount int    `json:"flightCount"`
}

// UpsertFromSearch appends a flight entry to the person's record, creating the
// record first if needed. On creation, bio (if non-nil) supplies personInfo;
// a failing lookup is recorded as "Search unavailable: <reason>", except a
// missing search credential, which fails the upsert before anything is written.
func (s *Store) UpsertFromSearch(ctx context.Context, name string, flight FlightEntry, bio BiographyFunc) (UpsertResult, error) {
	key, err := keyFor(name)
	if err != nil {
		return UpsertResult{}, err
	}
	if len(flight.Fields) == 0 && isNullJSON(flight.DepartureWeather) && isNullJSON(flight.ArrivalWeather) {
		return UpsertResult{}, apperrors.NewInvalidInput("Flight data required")
	}

	unlock, err := s.lock(ctx, key)
	if err != nil {
		return UpsertResult{}, err
	}
	defer unlock()

	path := s.pathForKey(key)
	rec, found, err := s.load(path)
	if err != nil {
		return UpsertResult{}, err
	}

	now := s.now().UTC()
	if !found {
		log.Printf("🆕 Creating pilot record %s for %q", key, name)
		personInfo := ""
		if bio != nil {
			info, err := bio(ctx, strings.TrimSpace(name))
			if err != nil {
				if apperrors.IsNotConfigured(err) || ctx.Err() != nil {
					return UpsertResult{}, err
				}
				log.Printf("biography lookup failed for %q: %v", name, err)
				info = "Search unavailable: " + apperrors.MessageOf(err)
			}
			personInfo = info
		}
		created := now
		rec = &Record{
			Name:       strings.TrimSpace(name),
			PersonInfo: personInfo,
			Flights:    []FlightEntry{},
			CreatedAt:  &created,
		}
	} else if rec.Name == "" {
		rec.Name = strings.TrimSpace(name)
	} else if !strings.EqualFold(rec.Name, strings.TrimSpace(name)) {
		log.Printf("⚠️ %q shares key %s with %q; appending to the existing record", name, key, rec.Name)
	}

	entry := flight.clone()
	entry.SearchedAt = now
	entry.Questionnaire = nil
	entry.EmotionAnalysis = nil
	entry.Analysis = nil
	rec.Flights = append(rec.Flights, entry)
	rec.LastUpdated = now

	if err := s.save(path, rec); err != nil {
		return UpsertResult{}, err
	}
	log.Printf("💾 Flight %d saved to: %s", len(rec.Flights), path)
	return UpsertResult{Path: path, Key: key, Created: !found, FlightCount: len(rec.Flights)}, nil
}

// QuestionnaireResult describes the outcome of SubmitQuestionnaire.
type QuestionnaireResult struct {
	Path          string        `json:"filePath"`
	Stored        bool          `json:"stored"`
	FlightIndex   int           `json:"flightIndex"`
	Questionnaire Questionnaire `json:"questionnaire"`
}

// SubmitQuestionnaire attaches answers to the current flight. The first
// submission for a flight wins; later ones succeed without writing anything.
func (s *Store) SubmitQuestionnaire(ctx context.Context, name string, answers map[string]string) (QuestionnaireResult, error) {
	key, err := keyFor(name)
	if err != nil {
		return QuestionnaireResult{}, err
	}
	if len(answers) == 0 {
		return QuestionnaireResult{}, apperrors.NewInvalidInput("Answers required")
	}

	unlock, err := s.lock(ctx, key)
	if err != nil {
		return QuestionnaireResult{}, err
	}
	defer unlock()

	path := s.pathForKey(key)
	rec, found, err := s.load(path)
	if err != nil {
		return QuestionnaireResult{}, err
	}
	if !found || len(rec.Flights) == 0 {
		log.Printf("No flights found for %s - questionnaire cannot be saved", key)
		return QuestionnaireResult{}, apperrors.NewNoFlightFound(key)
	}

	idx := len(rec.Flights) - 1
	current := &rec.Flights[idx]
	if current.Questionnaire != nil {
		log.Printf("Questionnaire already exists for flight %d of %s", idx, key)
		return QuestionnaireResult{Path: path, Stored: false, FlightIndex: idx, Questionnaire: *current.Questionnaire}, nil
	}

	now := s.now().UTC()
	q := Questionnaire{Answers: make(map[string]string, len(answers)), CompletedAt: now}
	for k, v := range answers {
		if k == completedAtKey {
			continue
		}
		q.Answers[k] = v
	}
	current.Questionnaire = &q
	rec.LastUpdated = now

	if err := s.save(path, rec); err != nil {
		return QuestionnaireResult{}, err
	}
	log.Printf("📝 Added questionnaire to flight at index %d: %s", idx, path)
	return QuestionnaireResult{Path: path, Stored: true, FlightIndex: idx, Questionnaire: q}, nil
}

// CaptureEmotion stores an emotion result at the record root and, when the
// person has flights, on the current flight too. It creates the record if absent.
func (s *Store) CaptureEmotion(ctx context.Context, name string, emotion EmotionResult) (EmotionResult, error) {
	key, err := keyFor(name)
	if err != nil {
		return EmotionResult{}, err
	}

	unlock, err := s.lock(ctx, key)
	if err != nil {
		return EmotionResult{}, err
	}
	defer unlock()

	path := s.pathForKey(key)
	rec, found, err := s.load(path)
	if err != nil {
		return EmotionResult{}, err
	}

	now := s.now().UTC()
	if !found {
		created := now
		rec = &Record{
			Name:      strings.TrimSpace(name),
			Flights:   []FlightEntry{},
			CreatedAt: &created,
		}
	}

	emotion.CapturedAt = now
	latest := emotion
	rec.LatestEmotionAnalysis = &latest
	if current := rec.CurrentFlight(); current != nil {
		perFlight := emotion
		current.EmotionAnalysis = &perFlight
		log.Printf("Added emotion to flight index %d of %s", len(rec.Flights)-1, key)
	}
	rec.LastUpdated = now

	if err := s.save(path, rec); err != nil {
		return EmotionResult{}, err
	}
	log.Printf("😶 Emotion data saved to: %s", path)
	return emotion, nil
}

// AnalysisResult describes the outcome of GetOrComputeAnalysis.
type AnalysisResult struct {
	Analysis  ReadinessAnalysis `json:"analysis"`
	Cached    bool              `json:"cached"`
	Persisted bool              `json:"-"`
}

// GetOrComputeAnalysis returns the stored analysis of the current flight, or
// computes, stores and returns a new one. With no flights the computed result
// is returned but not stored.
func (s *Store) GetOrComputeAnalysis(ctx context.Context, name string, compute ScoreFunc) (AnalysisResult, error) {
	key, err := keyFor(name)
	if err != nil {
		return AnalysisResult{}, err
	}
	if compute == nil {
		return AnalysisResult{}, fmt.Errorf("analysis: compute func is nil")
	}

	unlock, err := s.lock(ctx, key)
	if err != nil {
		return AnalysisResult{}, err
	}
	defer unlock()

	path := s.pathForKey(key)
	rec, found, err := s.load(path)
	if err != nil {
		return AnalysisResult{}, err
	}
	if !found {
		return AnalysisResult{}, apperrors.NewRecordNotFound(key)
	}

	if current := rec.CurrentFlight(); current != nil && current.Analysis != nil {
		return AnalysisResult{Analysis: *current.Analysis, Cached: true}, nil
	}

	log.Printf("🧠 Computing readiness analysis for %s", key)
	score, err := compute(ctx, rec.Clone())
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return AnalysisResult{}, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return AnalysisResult{}, err
		}
		return AnalysisResult{}, apperrors.NewExternalService("readiness scoring", err)
	}

	now := s.now().UTC()
	analysis := ReadinessAnalysis{
		Score:       clampScore(score.Score),
		Explanation: score.Explanation,
		AnalyzedAt:  now,
	}

	current := rec.CurrentFlight()
	if current == nil {
		return AnalysisResult{Analysis: analysis, Cached: false}, nil
	}
	stored := analysis
	current.Analysis = &stored
	rec.LastUpdated = now
	if err := s.save(path, rec); err != nil {
		return AnalysisResult{}, err
	}
	log.Printf("📊 Analysis saved to: %s", path)
	return AnalysisResult{Analysis: analysis, Cached: false, Persisted: true}, nil
}

// Get returns the record for a display name.
func (s *Store) Get(ctx context.Context, name string) (*Record, error) {
	key, err := keyFor(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, found, err := s.load(s.pathForKey(key))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewRecordNotFound(key)
	}
	return rec, nil
}

// Summary is a one-line view of a stored record.
type Summary struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Flights     int       `json:"flights"`
	LastUpdated time.Time `json:"lastUpdated"`
	LatestScore *float64  `json:"latestScore,omitempty"`
}

// All loads every record in the directory, keyed by storage key.
func (s *Store) All(ctx context.Context) (map[string]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.NewStorage(s.dir, fmt.Errorf("reading pilots directory: %w", err))
	}
	out := make(map[string]*Record, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordExt {
			continue
		}
		rec, found, err := s.load(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if found {
			out[strings.TrimSuffix(entry.Name(), recordExt)] = rec
		}
	}
	return out, nil
}

// List summarizes every record, sorted by key.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(records))
	for key, rec := range records {
		sum := Summary{Key: key, Name: rec.Name, Flights: len(rec.Flights), LastUpdated: rec.LastUpdated}
		if current := rec.CurrentFlight(); current != nil && current.Analysis != nil {
			score := current.Analysis.Score
			sum.LatestScore = &score
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func keyFor(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", apperrors.NewInvalidInput("Name required")
	}
	key := Key(name)
	if key == "" {
		return "", apperrors.NewInvalidInput("Name must contain at least one letter or digit")
	}
	return key, nil
}

func (s *Store) pathForKey(key string) string {
	return filepath.Join(s.dir, key+recordExt)
}

// load reads a record. A missing file is not an error; a malformed one is,
// and is left on disk untouched.
func (s *Store) load(path string) (*Record, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, apperrors.NewStorage(path, fmt.Errorf("reading record: %w", err))
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, apperrors.NewStorage(path, fmt.Errorf("parsing record %s: %w", filepath.Base(path), err))
	}
	if rec.Flights == nil {
		rec.Flights = []FlightEntry{}
	}
	return &rec, true, nil
}

// save writes the record to a temp file and renames it into place.
func (s *Store) save(path string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperrors.NewStorage(path, fmt.Errorf("encoding record: %w", err))
	}
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewStorage(path, fmt.Errorf("creating temp file: %w", err))
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return apperrors.NewStorage(path, fmt.Errorf("writing record: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.NewStorage(path, fmt.Errorf("closing record: %w", err))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.NewStorage(path, fmt.Errorf("chmod record: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.NewStorage(path, fmt.Errorf("replacing record: %w", err))
	}
	return nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
