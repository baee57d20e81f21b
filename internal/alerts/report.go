package alerts

import (
	"context"
	"fmt"
	"log"
	"time"

	"air-jarvis/internal/analytics"
	"air-jarvis/internal/pilots"
)

// RecordSource lists every stored record by key.
type RecordSource interface {
	All(ctx context.Context) (map[string]*pilots.Record, error)
}

// SendReport posts the day's summary.
func (n *Notifier) SendReport(ctx context.Context, stats *analytics.DailyStats) error {
	if n == nil {
		return nil
	}
	return n.send(ctx, "report", "📊 "+stats.GenerateReportSummary())
}

// DailyReport builds the scheduler job: it summarises today's activity (in
// UTC, as of now()) and posts it. Days without activity are skipped.
func DailyReport(src RecordSource, n *Notifier, now func() time.Time) func(ctx context.Context) error {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		records, err := src.All(ctx)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		stats := analytics.AnalyzeDay(records, now().UTC(), n.Threshold())
		if stats.ActivePilots == 0 {
			log.Printf("📊 no pilot activity on %s, report skipped", stats.Date)
			return nil
		}
		return n.SendReport(ctx, stats)
	}
}
