// Package alert delivers operator-facing alerts over the Telegram Bot API.
//
// No Telegram SDK is available, so this follows the thin third-party HTTP
// wrapper shape the node package's management client uses: a base URL, a
// bearer-style credential (the bot token embedded in the URL path per the
// Bot API's own convention), and a *http.Client with a fixed timeout.
package alert

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/coldroute/coldroute/internal/pkg/httpretry"
)

// Severity mirrors the alert severities referenced throughout the spec:
// info, warning, critical.
type Severity string

const (
	Info     Severity = "info"
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

// Sink delivers a single alert. Implementations must not block the caller
// for long; Telegram delivers over a retrying HTTP client with an overall
// deadline.
type Sink interface {
	Send(ctx context.Context, severity Severity, message string) error
}

// TelegramSink posts messages to a single chat via the Telegram Bot API's
// sendMessage method.
type TelegramSink struct {
	baseURL    string
	chatID     string
	httpClient httpretry.HTTPDoer
}

// NewTelegramSink builds a sink for the given bot token and chat ID.
// httpClient may be nil, in which case a retrying client with a 10s
// per-attempt timeout is used (retry queue / suspension-point budget c, §5).
func NewTelegramSink(botToken, chatID string, httpClient httpretry.HTTPDoer) *TelegramSink {
	if httpClient == nil {
		httpClient = httpretry.NewRetryClient(&http.Client{Timeout: 10 * time.Second}, 2)
	}
	return &TelegramSink{
		baseURL:    fmt.Sprintf("https://api.telegram.org/bot%s", botToken),
		chatID:     chatID,
		httpClient: httpClient,
	}
}

// Send posts message to the configured chat, prefixed with the severity.
func (t *TelegramSink) Send(ctx context.Context, severity Severity, message string) error {
	text := fmt.Sprintf("[%s] %s", severity, message)

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendMessage",
		nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = form.Encode()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage returned %s", strconv.Itoa(resp.StatusCode))
	}
	return nil
}

// NoopSink discards every alert. Used when no Telegram credentials are
// configured so the rest of the system can always call an alert.Sink
// without nil checks.
type NoopSink struct{}

func (NoopSink) Send(context.Context, Severity, string) error { return nil }
