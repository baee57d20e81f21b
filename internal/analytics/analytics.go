package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"air-jarvis/internal/pilots"
)

// DailyStats summarises pilot activity for one UTC day
type DailyStats struct {
	Date            string                `json:"date"`
	Searches        int                   `json:"searches"`
	Questionnaires  int                   `json:"questionnaires"`
	Analyses        int                   `json:"analyses"`
	EmotionCaptures int                   `json:"emotion_captures"`
	ActivePilots    int                   `json:"active_pilots"`
	AverageScore    *float64              `json:"average_score,omitempty"`
	LowScorePilots  []string              `json:"low_score_pilots,omitempty"`
	PilotStats      map[string]PilotStats `json:"pilot_stats"`
}

// PilotStats is one pilot's share of the day
type PilotStats struct {
	Key             string   `json:"key"`
	Name            string   `json:"name"`
	Searches        int      `json:"searches"`
	Questionnaires  int      `json:"questionnaires"`
	Analyses        int      `json:"analyses"`
	EmotionCaptures int      `json:"emotion_captures"`
	LatestScore     *float64 `json:"latest_score,omitempty"`
}

func (p PilotStats) active() bool {
	return p.Searches+p.Questionnaires+p.Analyses+p.EmotionCaptures > 0
}

// AnalyzeDay counts the writes that happened on targetDate's day across all
// records. Analyses scoring below lowScore put the pilot on the low-score list.
func AnalyzeDay(records map[string]*pilots.Record, targetDate time.Time, lowScore float64) *DailyStats {
	// Normalise to the start of the day
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)
	inDay := func(ts time.Time) bool {
		return !ts.IsZero() && !ts.Before(startOfDay) && ts.Before(endOfDay)
	}

	stats := &DailyStats{
		Date:       startOfDay.Format("2006-01-02"),
		PilotStats: make(map[string]PilotStats),
	}

	var scoreSum float64
	var scored int

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rec := records[key]
		ps := PilotStats{Key: key, Name: rec.Name}
		emotions := make(map[int64]bool)

		for _, f := range rec.Flights {
			if inDay(f.SearchedAt) {
				ps.Searches++
			}
			if f.Questionnaire != nil && inDay(f.Questionnaire.CompletedAt) {
				ps.Questionnaires++
			}
			if f.EmotionAnalysis != nil && inDay(f.EmotionAnalysis.CapturedAt) {
				emotions[f.EmotionAnalysis.CapturedAt.UnixNano()] = true
			}
			if f.Analysis != nil && inDay(f.Analysis.AnalyzedAt) {
				ps.Analyses++
				score := f.Analysis.Score
				ps.LatestScore = &score
				scoreSum += score
				scored++
			}
		}
		// The root copy duplicates the current flight's capture.
		if e := rec.LatestEmotionAnalysis; e != nil && inDay(e.CapturedAt) {
			emotions[e.CapturedAt.UnixNano()] = true
		}
		ps.EmotionCaptures = len(emotions)

		if !ps.active() {
			continue
		}
		stats.Searches += ps.Searches
		stats.Questionnaires += ps.Questionnaires
		stats.Analyses += ps.Analyses
		stats.EmotionCaptures += ps.EmotionCaptures
		stats.PilotStats[key] = ps
		if ps.LatestScore != nil && *ps.LatestScore < lowScore {
			stats.LowScorePilots = append(stats.LowScorePilots, rec.Name)
		}
	}

	stats.ActivePilots = len(stats.PilotStats)
	if scored > 0 {
		avg := scoreSum / float64(scored)
		stats.AverageScore = &avg
	}
	return stats
}

// GenerateReportSummary renders the day as a plain-text report
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, `Air Jarvis readiness report for %s:

Activity:
- Flight searches: %d
- Questionnaires: %d
- Readiness analyses: %d
- Emotion captures: %d
- Active pilots: %d
`, ds.Date, ds.Searches, ds.Questionnaires, ds.Analyses, ds.EmotionCaptures, ds.ActivePilots)

	if ds.AverageScore != nil {
		fmt.Fprintf(&b, "- Average readiness score: %.1f\n", *ds.AverageScore)
	}
	if len(ds.LowScorePilots) > 0 {
		fmt.Fprintf(&b, "\n⚠️ Low readiness: %s\n", strings.Join(ds.LowScorePilots, ", "))
	}

	if len(ds.PilotStats) > 0 {
		keys := make([]string, 0, len(ds.PilotStats))
		for k := range ds.PilotStats {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(&b, "\nPilots (%d):\n", len(keys))
		for _, k := range keys {
			ps := ds.PilotStats[k]
			fmt.Fprintf(&b, "- %s: %d searches, %d questionnaires", ps.Name, ps.Searches, ps.Questionnaires)
			if ps.LatestScore != nil {
				fmt.Fprintf(&b, ", score %.0f", *ps.LatestScore)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ToJSON serialises the stats for detailed inspection
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
