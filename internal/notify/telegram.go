package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/cybersectk/cstk/internal/config"
)

// telegramMessageLimit is the Bot API maximum message length.
const telegramMessageLimit = 4096

// TelegramChannel sends notifications via the Telegram Bot API.
type TelegramChannel struct {
	cfg     config.TelegramNotifyConfig
	apiBase string
	client  *http.Client
}

// NewTelegram creates a TelegramChannel from cfg.
func NewTelegram(cfg config.TelegramNotifyConfig) *TelegramChannel {
	return &TelegramChannel{
		cfg:     cfg,
		apiBase: "https://api.telegram.org",
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (t *TelegramChannel) Name() string       { return "telegram" }
func (t *TelegramChannel) IsConfigured() bool { return t.cfg.BotToken != "" && t.cfg.ChatID != "" }

func (t *TelegramChannel) Send(ctx context.Context, evt Event) error {
	payload := map[string]any{
		"chat_id":                  t.cfg.ChatID,
		"text":                     telegramText(evt),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req) // #nosec G107 -- URL is the Telegram API base plus the user-configured bot token
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram API returned %d", resp.StatusCode)
	}
	return nil
}

// telegramText frames an event as HTML: bold title, italic job context line,
// body, then the dashboard link. Body text is escaped so a finding title
// containing angle brackets cannot break the markup.
func telegramText(evt Event) string {
	var sb strings.Builder
	sb.WriteString("<b>" + html.EscapeString(evt.Title) + "</b>")
	if ctxLine := strings.TrimSpace(evt.Kind + " " + evt.JobID); ctxLine != "" {
		sb.WriteString("\n<i>" + html.EscapeString(ctxLine) + "</i>")
	}
	if evt.Body != "" {
		sb.WriteString("\n\n" + html.EscapeString(evt.Body))
	}
	if evt.URL != "" {
		sb.WriteString("\n" + evt.URL)
	}
	return truncateRunes(sb.String(), telegramMessageLimit)
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
