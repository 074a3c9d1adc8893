// Package telegram delivers gauge shift alerts to a Telegram chat via the Bot
// API. Messages use MarkdownV2; sends are rate limited and retried with a
// linear backoff.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/pulsegauge/internal/models"
)

// sender is the part of the bot API the client needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	limiter        *rate.Limiter
}

// NewClient creates a new Telegram client. messagesPerMinute <= 0 disables
// throttling.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration, messagesPerMinute int) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase, messagesPerMinute)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration, messagesPerMinute int) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	limit := rate.Inf
	if messagesPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(messagesPerMinute))
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		limiter:        rate.NewLimiter(limit, 1),
	}, nil
}

// Notify sends one message describing all shifts.
func (c *Client) Notify(ctx context.Context, shifts []models.Shift) error {
	if len(shifts) == 0 {
		return nil
	}
	return c.send(ctx, formatMessage(shifts))
}

func (c *Client) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("send cancelled after %d attempt(s): %w", i+1, lastErr)
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage formats shifts into a MarkdownV2 message.
func formatMessage(shifts []models.Shift) string {
	var b strings.Builder
	b.WriteString("📊 *Gauge Shifts Detected*\n\n")

	if len(shifts) > 0 {
		dateStr := escapeMarkdownV2(shifts[0].DetectedAt.UTC().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "📅 Detected: %s UTC\n\n", dateStr)
	}

	for i, s := range shifts {
		directionEmoji := "📈"
		sign := "+"
		if s.Direction == models.TrendDown {
			directionEmoji = "📉"
			sign = "-"
		}

		category := escapeMarkdownV2(humanize(string(s.Category)))
		value := escapeMarkdownV2(fmt.Sprintf("%.2f", s.Value))
		baseline := escapeMarkdownV2(fmt.Sprintf("%.2f", s.Baseline7d))
		deviation := escapeMarkdownV2(fmt.Sprintf("%s%.1f%%", sign, s.Deviation*100))
		strength := escapeMarkdownV2(fmt.Sprintf("%.2f", s.TrendStrength))
		confidence := escapeMarkdownV2(fmt.Sprintf("%.0f%%", s.Confidence*100))

		fmt.Fprintf(&b, "%d\\. %s *%s* %s\n", i+1, directionEmoji, category, s.Direction)
		fmt.Fprintf(&b, "   Value: *%s* \\(7d baseline %s, %s of range\\)\n", value, baseline, deviation)
		fmt.Fprintf(&b, "   Trend strength: %s · Confidence: %s\n\n", strength, confidence)
	}

	return b.String()
}

// humanize turns "natural_events" into "Natural Events".
func humanize(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
