// Package alerts pushes low-readiness warnings and daily reports to a
// Telegram chat.
package alerts

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"air-jarvis/internal/metrics"
	"air-jarvis/internal/pilots"
)

// Telegram rejects longer messages.
const maxMessageLen = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type botAPISender struct{ api *tgbotapi.BotAPI }

func (s botAPISender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.api.Send(c)
}

// Notifier is nil-safe: a nil *Notifier drops every message, which is how
// alerts are disabled.
type Notifier struct {
	s         sender
	chatID    int64
	threshold float64
	metrics   *metrics.Metrics
}

func New(token string, chatID int64, threshold float64, m *metrics.Metrics) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	log.Printf("📣 Telegram alerts enabled as @%s", api.Self.UserName)
	return &Notifier{s: botAPISender{api: api}, chatID: chatID, threshold: threshold, metrics: m}, nil
}

// Threshold is the score below which an analysis raises an alert.
func (n *Notifier) Threshold() float64 {
	if n == nil {
		return 0
	}
	return n.threshold
}

// ReadinessAnalyzed alerts when a freshly computed score falls below the
// threshold. It reports whether a message was sent.
func (n *Notifier) ReadinessAnalyzed(ctx context.Context, name string, a pilots.ReadinessAnalysis) (bool, error) {
	if n == nil || a.Score >= n.threshold {
		return false, nil
	}
	text := fmt.Sprintf("⚠️ Low flight readiness: %s scored %.0f/100 (threshold %.0f)\n\n%s",
		name, a.Score, n.threshold, a.Explanation)
	err := n.send(ctx, "low_score", text)
	return err == nil, err
}

func (n *Notifier) send(ctx context.Context, kind, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text = truncate(text, maxMessageLen)
	_, err := n.s.Send(tgbotapi.NewMessage(n.chatID, text))
	n.metrics.IncAlert(kind, err)
	if err != nil {
		log.Printf("❌ telegram %s message failed: %v", kind, err)
		return fmt.Errorf("send telegram message: %w", err)
	}
	log.Printf("📣 telegram %s message sent", kind)
	return nil
}

// truncate cuts text to at most limit bytes on a rune boundary, marking the cut
// with "...".
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit - len("...")
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
