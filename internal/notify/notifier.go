// Package notify posts run summaries to chat channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Summary describes the outcome of one prepare run.
type Summary struct {
	RunID       string
	Source      string
	StartedAt   time.Time
	Duration    time.Duration
	RowsRead    int
	RowsOut     int
	Instruments int
	// Excluded maps ticker to its missing fraction.
	Excluded map[string]float64
	Err      error
}

// Succeeded reports whether the run finished without error.
func (s Summary) Succeeded() bool { return s.Err == nil }

// Notifier delivers run summaries.
type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}

// TelegramNotifier posts summaries through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered summary.
func (n *TelegramNotifier) Notify(ctx context.Context, summary Summary) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(summary),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false: %s", result.Description)
		}
	}

	n.logger.Info().Str("run_id", summary.RunID).
		Bool("succeeded", summary.Succeeded()).
		Msg("run summary sent")
	return nil
}

// RenderMessage formats a summary as plain text.
func RenderMessage(s Summary) string {
	builder := strings.Builder{}
	if s.Succeeded() {
		builder.WriteString("[asset-insights] prepare succeeded\n")
	} else {
		builder.WriteString("[asset-insights] prepare FAILED\n")
	}
	if s.RunID != "" {
		builder.WriteString(fmt.Sprintf("Run: %s\n", s.RunID))
	}
	if s.Source != "" {
		builder.WriteString(fmt.Sprintf("Source: %s\n", s.Source))
	}
	if !s.StartedAt.IsZero() {
		builder.WriteString(fmt.Sprintf("Started: %s UTC\n", s.StartedAt.UTC().Format(time.RFC3339)))
	}
	builder.WriteString(fmt.Sprintf("Duration: %s\n", s.Duration.Round(time.Millisecond)))
	if !s.Succeeded() {
		builder.WriteString(fmt.Sprintf("Error: %s\n", s.Err))
		return builder.String()
	}

	builder.WriteString(fmt.Sprintf("Rows: %d read, %d written\n", s.RowsRead, s.RowsOut))
	builder.WriteString(fmt.Sprintf("Instruments: %d\n", s.Instruments))
	if len(s.Excluded) > 0 {
		tickers := make([]string, 0, len(s.Excluded))
		for t := range s.Excluded {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		builder.WriteString(fmt.Sprintf("Excluded (%d):\n", len(tickers)))
		for _, t := range tickers {
			pct := decimal.NewFromFloat(s.Excluded[t]).Shift(2).StringFixed(2)
			builder.WriteString(fmt.Sprintf("  %s %s%% missing\n", t, pct))
		}
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
