// Package ingest reads newline-delimited JSON messages from upstream
// collectors and turns them into gauge updates and sentiment analysis calls.
//
// Two message shapes are accepted, one per line:
//
//	{"category": "financial", "value": 61.2, "confidence": 0.9, "source": "markets"}
//	{"articles": [{"title": "...", "description": "...", "source": "BBC", "importance": 0.5}]}
//
// Malformed lines are logged and skipped; they never stop the stream.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rewired-gh/pulsegauge/internal/logger"
	"github.com/rewired-gh/pulsegauge/internal/models"
)

// maxLineBytes bounds a single message.
const maxLineBytes = 4 << 20

// Sink receives decoded messages.
type Sink interface {
	UpdateValue(category models.Category, value float64, meta models.Metadata)
	AnalyzeArticlesSentiment(items []models.RawItem) models.SentimentResult
}

// Message is one decoded line.
type Message struct {
	Category   models.Category  `json:"category,omitempty"`
	Value      *float64         `json:"value,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	Source     string           `json:"source,omitempty"`
	Articles   []models.RawItem `json:"articles,omitempty"`
}

// Stats counts what a Run did.
type Stats struct {
	Lines    int
	Values   int
	Batches  int
	Articles int
	Skipped  int
}

var (
	errEmptyMessage = errors.New("message has neither category nor articles")
	errMissingValue = errors.New("value message without numeric value")
	errAmbiguous    = errors.New("message has both category and articles")
)

// Decode parses and checks one line.
func Decode(line []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, fmt.Errorf("invalid JSON: %w", err)
	}

	msg.Category = models.Category(strings.TrimSpace(string(msg.Category)))
	switch {
	case msg.Category != "" && msg.Articles != nil:
		return Message{}, errAmbiguous
	case msg.Category != "":
		if msg.Value == nil {
			return Message{}, errMissingValue
		}
	case msg.Articles == nil:
		return Message{}, errEmptyMessage
	}
	return msg, nil
}

// Run reads r until EOF or ctx is done, dispatching every valid line to sink.
// Only read errors are returned; bad lines are counted as skipped.
func Run(ctx context.Context, r io.Reader, sink Sink) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		stats.Lines++

		msg, err := Decode(line)
		if err != nil {
			stats.Skipped++
			logger.Warn("Skipping ingest line %d: %v", stats.Lines, err)
			continue
		}

		if msg.Articles != nil {
			result := sink.AnalyzeArticlesSentiment(msg.Articles)
			stats.Batches++
			stats.Articles += len(msg.Articles)
			logger.Debug("Ingested %d articles: sentiment=%.3f confidence=%.2f",
				len(msg.Articles), result.OverallSentiment, result.Confidence)
			continue
		}

		sink.UpdateValue(msg.Category, *msg.Value, models.Metadata{
			Confidence: msg.Confidence,
			Source:     msg.Source,
		})
		stats.Values++
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read ingest stream: %w", err)
	}
	return stats, nil
}
