package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cybersectk/cstk/internal/config"
)

func TestTelegramSendFraming(t *testing.T) {
	var path string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	ch := NewTelegram(config.TelegramNotifyConfig{BotToken: "bot-tok", ChatID: "42"})
	ch.apiBase = srv.URL
	err := ch.Send(context.Background(), Event{
		Type:  "job.completed",
		Title: "Scan <finished>",
		Body:  "3 findings",
		JobID: "j7",
		Kind:  "port_scan",
		URL:   "http://backend/jobs/j7",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if path != "/botbot-tok/sendMessage" {
		t.Errorf("unexpected API path %q", path)
	}
	if payload["chat_id"] != "42" || payload["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload: %v", payload)
	}
	text := payload["text"].(string)
	if !strings.Contains(text, "<b>Scan &lt;finished&gt;</b>") {
		t.Errorf("title not escaped and bolded: %q", text)
	}
	if !strings.Contains(text, "<i>port_scan j7</i>") {
		t.Errorf("job context line missing: %q", text)
	}
	if !strings.Contains(text, "http://backend/jobs/j7") {
		t.Errorf("link missing: %q", text)
	}
}

func TestTelegramTextTruncation(t *testing.T) {
	long := strings.Repeat("x", telegramMessageLimit+500)
	text := telegramText(Event{Title: "t", Body: long})
	if n := utf8.RuneCountInString(text); n > telegramMessageLimit {
		t.Errorf("message exceeds limit: %d runes", n)
	}
	if !strings.HasSuffix(text, "…") {
		t.Error("truncated message should end with an ellipsis")
	}
}

func TestEmailMessageFormat(t *testing.T) {
	msg := string(emailMessage("cstk@example.com", []string{"a@example.com", "b@example.com"}, Event{
		Title: "Scan failed",
		Body:  "line one\nline two",
		JobID: "j3",
		Kind:  "vulnerability_scan",
		URL:   "http://backend/jobs/j3",
	}))

	for _, want := range []string{
		"From: cstk@example.com\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: [cstk] Scan failed\r\n",
		"vulnerability_scan j3\r\n",
		"line one\r\nline two\r\n",
		"http://backend/jobs/j3\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(strings.ReplaceAll(msg, "\r\n", ""), "\n") {
		t.Error("bare LF line endings in message")
	}
}

func TestEmailRecipientsSplit(t *testing.T) {
	ch := NewEmail(config.EmailNotifyConfig{To: " a@example.com, ,b@example.com "})
	got := ch.recipients()
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Errorf("recipients = %v", got)
	}
}
