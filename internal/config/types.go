package config

import "time"

// Config is the root configuration structure for cstk.
// Serialised to ~/.cstk/config.json.
type Config struct {
	Backend BackendConfig `mapstructure:"backend" json:"backend"`
	Journal JournalConfig `mapstructure:"journal" json:"journal"`
	Watch   WatchConfig   `mapstructure:"watch"   json:"watch"`
	List    ListConfig    `mapstructure:"list"    json:"list"`
	Reports ReportsConfig `mapstructure:"reports" json:"reports"`
	Notify  NotifyConfig  `mapstructure:"notify"  json:"notify"`
}

// BackendConfig locates the CyberSec Toolkit Pro backend.
// The URL is the single source of truth for base URL resolution: the
// CSTK_BACKEND_URL environment variable overrides the config file, and
// nothing else in the codebase reads ambient environment variables.
type BackendConfig struct {
	// URL is the backend base URL (default: http://localhost:8000).
	URL string `mapstructure:"url" json:"url"`
	// Token, when set, is sent as an Authorization: Bearer header.
	Token string `mapstructure:"token" json:"token,omitempty"`
	// TimeoutSeconds bounds each individual HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	// RetryMax is the number of transport-level retries per request.
	RetryMax int `mapstructure:"retry_max" json:"retry_max"`
}

// JournalConfig controls the local submission journal backend.
type JournalConfig struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string `mapstructure:"driver" json:"driver"`
	// Path is the SQLite file path (expanded at runtime).
	Path string `mapstructure:"path"   json:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn"    json:"dsn"`
}

// WatchConfig controls status polling behaviour.
type WatchConfig struct {
	// IntervalSeconds between status polls (default: 2).
	IntervalSeconds int `mapstructure:"interval_seconds" json:"interval_seconds"`
	// MaxBackoffSeconds caps the error backoff delay (default: 30).
	MaxBackoffSeconds int `mapstructure:"max_backoff_seconds" json:"max_backoff_seconds"`
	// MaxDurationMinutes ends a watch that never reaches a terminal state (default: 30).
	MaxDurationMinutes int `mapstructure:"max_duration_minutes" json:"max_duration_minutes"`
}

// Interval returns the poll interval as a duration.
func (w WatchConfig) Interval() time.Duration {
	return time.Duration(w.IntervalSeconds) * time.Second
}

// MaxBackoff returns the error backoff cap as a duration.
func (w WatchConfig) MaxBackoff() time.Duration {
	return time.Duration(w.MaxBackoffSeconds) * time.Second
}

// MaxDuration returns the watch duration cap as a duration.
func (w WatchConfig) MaxDuration() time.Duration {
	return time.Duration(w.MaxDurationMinutes) * time.Minute
}

// ListConfig controls the job listing views.
type ListConfig struct {
	// PageSize is the default page size (default: 20).
	PageSize int `mapstructure:"page_size" json:"page_size"`
	// RefreshSeconds is the auto-refresh interval for live views (default: 30).
	RefreshSeconds int `mapstructure:"refresh_seconds" json:"refresh_seconds"`
	// DebounceMillis is how long search input must settle before a fetch (default: 300).
	DebounceMillis int `mapstructure:"debounce_millis" json:"debounce_millis"`
}

// Refresh returns the auto-refresh interval as a duration.
func (l ListConfig) Refresh() time.Duration {
	return time.Duration(l.RefreshSeconds) * time.Second
}

// Debounce returns the search debounce as a duration.
func (l ListConfig) Debounce() time.Duration {
	return time.Duration(l.DebounceMillis) * time.Millisecond
}

// ReportsConfig controls report export.
type ReportsConfig struct {
	// Dir is where exported reports are written (default: ~/.cstk/reports).
	Dir string `mapstructure:"dir" json:"dir"`
}

// NotifyConfig controls terminal-state notifications.
type NotifyConfig struct {
	// Events filters which event types are sent (empty = defaults).
	Events   []string             `mapstructure:"events"   json:"events,omitempty"`
	Slack    SlackNotifyConfig    `mapstructure:"slack"    json:"slack"`
	Telegram TelegramNotifyConfig `mapstructure:"telegram" json:"telegram"`
	Email    EmailNotifyConfig    `mapstructure:"email"    json:"email"`
	Webhook  WebhookNotifyConfig  `mapstructure:"webhook"  json:"webhook"`
}

// SlackNotifyConfig holds a Slack incoming-webhook target.
type SlackNotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url,omitempty"`
}

// TelegramNotifyConfig holds Telegram Bot API credentials.
type TelegramNotifyConfig struct {
	BotToken string `mapstructure:"bot_token" json:"bot_token,omitempty"`
	ChatID   string `mapstructure:"chat_id"   json:"chat_id,omitempty"`
}

// EmailNotifyConfig holds SMTP delivery settings.
type EmailNotifyConfig struct {
	SMTPHost string `mapstructure:"smtp_host" json:"smtp_host,omitempty"`
	SMTPPort int    `mapstructure:"smtp_port" json:"smtp_port,omitempty"`
	From     string `mapstructure:"from"      json:"from,omitempty"`
	To       string `mapstructure:"to"        json:"to,omitempty"`
	Username string `mapstructure:"username"  json:"username,omitempty"`
	Password string `mapstructure:"password"  json:"password,omitempty"`
	UseTLS   bool   `mapstructure:"use_tls"   json:"use_tls,omitempty"`
}

// WebhookNotifyConfig holds a generic HTTP webhook target.
type WebhookNotifyConfig struct {
	URL    string `mapstructure:"url"    json:"url,omitempty"`
	Secret string `mapstructure:"secret" json:"secret,omitempty"`
}
