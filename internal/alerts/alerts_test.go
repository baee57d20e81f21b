package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"air-jarvis/internal/metrics"
	"air-jarvis/internal/pilots"
)

type fakeSender struct {
	sent  []string
	chats []int64
	err   error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg.Text)
	f.chats = append(f.chats, msg.ChatID)
	return tgbotapi.Message{}, nil
}

type fakeSource struct {
	records map[string]*pilots.Record
	err     error
}

func (f fakeSource) All(ctx context.Context) (map[string]*pilots.Record, error) {
	return f.records, f.err
}

func newNotifier(fs *fakeSender) *Notifier {
	return &Notifier{s: fs, chatID: 42, threshold: 60}
}

func TestReadinessAnalyzed_BelowThreshold(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(fs)

	sent, err := n.ReadinessAnalyzed(context.Background(), "Jane Doe", pilots.ReadinessAnalysis{Score: 45, Explanation: "Little sleep."})
	if err != nil || !sent {
		t.Fatalf("expected alert, sent=%v err=%v", sent, err)
	}
	if len(fs.sent) != 1 || fs.chats[0] != 42 {
		t.Fatalf("unexpected sends: %+v %+v", fs.sent, fs.chats)
	}
	if !strings.Contains(fs.sent[0], "Jane Doe scored 45/100") || !strings.Contains(fs.sent[0], "Little sleep.") {
		t.Fatalf("unexpected text: %q", fs.sent[0])
	}
}

func TestReadinessAnalyzed_AtOrAboveThreshold(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(fs)

	sent, err := n.ReadinessAnalyzed(context.Background(), "Jane Doe", pilots.ReadinessAnalysis{Score: 60})
	if err != nil || sent {
		t.Fatalf("expected no alert, sent=%v err=%v", sent, err)
	}
	if len(fs.sent) != 0 {
		t.Fatalf("nothing should be sent: %+v", fs.sent)
	}
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	if sent, err := n.ReadinessAnalyzed(context.Background(), "x", pilots.ReadinessAnalysis{Score: 1}); sent || err != nil {
		t.Fatalf("nil notifier must be a no-op")
	}
	if err := n.SendReport(context.Background(), nil); err != nil {
		t.Fatalf("nil notifier report: %v", err)
	}
}

func TestSend_FailureCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	fs := &fakeSender{err: errors.New("telegram down")}
	n := &Notifier{s: fs, chatID: 1, threshold: 60, metrics: metrics.MustNewMetrics(reg)}

	_, err := n.ReadinessAnalyzed(context.Background(), "Jane", pilots.ReadinessAnalysis{Score: 10})
	if err == nil {
		t.Fatalf("expected send error")
	}
	if got := testutil.CollectAndCount(reg, "air_jarvis_alerts_sent_total"); got != 1 {
		t.Fatalf("expected one alert series, got %d", got)
	}
}

func TestSend_Truncates(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(fs)
	if err := n.send(context.Background(), "report", strings.Repeat("a", maxMessageLen+10)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(fs.sent[0]) != maxMessageLen || !strings.HasSuffix(fs.sent[0], "...") {
		t.Fatalf("expected truncated message, len=%d", len(fs.sent[0]))
	}
}

func TestSend_TruncatesOnRuneBoundary(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(fs)
	msg := "ab" + strings.Repeat("✈", 2000)
	if err := n.send(context.Background(), "report", msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	got := fs.sent[0]
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message is not valid UTF-8")
	}
	if len(got) > maxMessageLen || !strings.HasSuffix(got, "✈...") {
		t.Fatalf("unexpected cut: len=%d suffix=%q", len(got), got[len(got)-8:])
	}
}

func TestDailyReport(t *testing.T) {
	now := time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)
	fs := &fakeSender{}
	src := fakeSource{records: map[string]*pilots.Record{
		"janedoe": {
			Name: "Jane Doe",
			Flights: []pilots.FlightEntry{{
				SearchedAt: now.Add(-5 * time.Hour),
				Analysis:   &pilots.ReadinessAnalysis{Score: 40, AnalyzedAt: now.Add(-4 * time.Hour)},
			}},
		},
	}}

	job := DailyReport(src, newNotifier(fs), func() time.Time { return now })
	if err := job(context.Background()); err != nil {
		t.Fatalf("job: %v", err)
	}
	if len(fs.sent) != 1 {
		t.Fatalf("expected one report, got %d", len(fs.sent))
	}
	for _, want := range []string{"2025-03-01", "Flight searches: 1", "Low readiness: Jane Doe"} {
		if !strings.Contains(fs.sent[0], want) {
			t.Fatalf("report missing %q:\n%s", want, fs.sent[0])
		}
	}
}

func TestDailyReport_SkipsQuietDay(t *testing.T) {
	fs := &fakeSender{}
	job := DailyReport(fakeSource{records: map[string]*pilots.Record{}}, newNotifier(fs), nil)
	if err := job(context.Background()); err != nil {
		t.Fatalf("job: %v", err)
	}
	if len(fs.sent) != 0 {
		t.Fatalf("quiet day must not send")
	}
}

func TestDailyReport_SourceError(t *testing.T) {
	job := DailyReport(fakeSource{err: errors.New("disk")}, newNotifier(&fakeSender{}), nil)
	if err := job(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
