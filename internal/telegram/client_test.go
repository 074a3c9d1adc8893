package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/pulsegauge/internal/models"
)

type fakeBot struct {
	failures int
	sent     []tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func testShift() models.Shift {
	return models.Shift{
		ID:            "shift-1",
		Category:      models.CategoryNaturalEvents,
		Direction:     models.TrendUp,
		Value:         82.5,
		Baseline7d:    60,
		Deviation:     0.225,
		TrendStrength: 0.8,
		Confidence:    0.74,
		DetectedAt:    time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"82.50", "82\\.50"},
		{"+22.5%", "\\+22\\.5%"},
		{"(a_b)", "\\(a\\_b\\)"},
		{"2026-03-01", "2026\\-03\\-01"},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.in); got != tt.want {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestHumanize(t *testing.T) {
	if got := humanize("natural_events"); got != "Natural Events" {
		t.Errorf("humanize = %q, expected %q", got, "Natural Events")
	}
	if got := humanize("sentiment"); got != "Sentiment" {
		t.Errorf("humanize = %q, expected %q", got, "Sentiment")
	}
}

func TestFormatMessage(t *testing.T) {
	down := testShift()
	down.Category = models.CategoryFinancial
	down.Direction = models.TrendDown
	down.Value = 30

	msg := formatMessage([]models.Shift{testShift(), down})

	for _, want := range []string{
		"2026\\-03\\-01 12:30:00 UTC",
		"1\\. 📈 *Natural Events* up",
		"Value: *82\\.50* \\(7d baseline 60\\.00, \\+22\\.5% of range\\)",
		"Confidence: 74%",
		"2\\. 📉 *Financial* down",
		"\\-22\\.5% of range",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Message missing %q:\n%s", want, msg)
		}
	}
}

func TestNotify_RetriesThenSucceeds(t *testing.T) {
	bot := &fakeBot{failures: 2}
	c, err := newClient(bot, "12345", 3, time.Millisecond, 0)
	if err != nil {
		t.Fatalf("newClient failed: %v", err)
	}

	if err := c.Notify(context.Background(), []models.Shift{testShift()}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("Expected 1 sent message, got %d", len(bot.sent))
	}
	if bot.sent[0].ChatID != 12345 || bot.sent[0].ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("Unexpected message config: %+v", bot.sent[0])
	}
}

func TestNotify_GivesUp(t *testing.T) {
	bot := &fakeBot{failures: 5}
	c, _ := newClient(bot, "1", 2, time.Millisecond, 0)

	err := c.Notify(context.Background(), []models.Shift{testShift()})
	if err == nil || !strings.Contains(err.Error(), "after 2 retries") {
		t.Errorf("Expected retry exhaustion error, got %v", err)
	}
}

func TestNotify_Empty(t *testing.T) {
	bot := &fakeBot{}
	c, _ := newClient(bot, "1", 1, time.Millisecond, 0)
	if err := c.Notify(context.Background(), nil); err != nil || len(bot.sent) != 0 {
		t.Errorf("Expected no-op for empty shifts, got err=%v sent=%d", err, len(bot.sent))
	}
}

func TestNotify_ContextCancelled(t *testing.T) {
	bot := &fakeBot{failures: 1}
	c, _ := newClient(bot, "1", 3, time.Hour, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := c.Notify(ctx, []models.Shift{testShift()}); err == nil {
		t.Error("Expected error when context expires during backoff")
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	if _, err := newClient(&fakeBot{}, "not-a-number", 1, time.Second, 10); err == nil {
		t.Error("Expected error for invalid chat ID")
	}
}
