package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dynosched/pkg/config"
	"dynosched/pkg/history"
	"dynosched/pkg/logger"

	"go.uber.org/zap"
)

const defaultTelegramAPI = "https://api.telegram.org"

var ErrNotConfigured = errors.New("telegram bot token or chat ID not configured")

// TelegramNotifier sends action failure alerts to a Telegram chat
type TelegramNotifier struct {
	config     *config.TelegramConfig
	apiBase    string
	httpClient *http.Client
}

// TelegramMessage represents a message to be sent via Telegram
type TelegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// TelegramResponse represents Telegram API response
type TelegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg *config.TelegramConfig) *TelegramNotifier {
	if cfg == nil {
		cfg = &config.TelegramConfig{}
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramNotifier{
		config:     cfg,
		apiBase:    defaultTelegramAPI,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithAPIBase points the notifier at another Bot API endpoint.
func (t *TelegramNotifier) WithAPIBase(base string) *TelegramNotifier {
	t.apiBase = strings.TrimRight(base, "/")
	return t
}

// Enabled reports whether alerts will be sent.
func (t *TelegramNotifier) Enabled() bool {
	return t.config.Enabled
}

// SendMessage sends a message via Telegram
func (t *TelegramNotifier) SendMessage(ctx context.Context, message string) error {
	if !t.config.Enabled {
		logger.Debug("Telegram notifications disabled")
		return nil
	}
	if err := t.ValidateConfig(); err != nil {
		return err
	}

	return t.sendTelegramMessage(ctx, &TelegramMessage{
		ChatID:    t.config.ChatID,
		Text:      message,
		ParseMode: "Markdown",
	})
}

// NotifyActionFailure reports a failed scheduled turn-on or turn-off.
func (t *TelegramNotifier) NotifyActionFailure(ctx context.Context, rec history.ActionRecord) error {
	verb := "turn ON"
	if rec.Action == history.ActionTurnOff {
		verb = "turn OFF"
	}
	message := fmt.Sprintf("*Scheduled action failed*\n\n"+
		"App: `%s`\n"+
		"Action: %s\n"+
		"Error: %s\n"+
		"Time: %s",
		rec.AppName, verb, escapeMarkdown(rec.Error), rec.Timestamp.Format("2006-01-02 15:04:05 MST"))
	return t.SendMessage(ctx, message)
}

// NotifyHealth sends the issues of an unhealthy check.
func (t *TelegramNotifier) NotifyHealth(ctx context.Context, issues []string) error {
	if len(issues) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("*Health check found issues*\n\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s\n", escapeMarkdown(issue))
	}
	return t.SendMessage(ctx, b.String())
}

// sendTelegramMessage sends message to Telegram API
func (t *TelegramNotifier) sendTelegramMessage(ctx context.Context, message *TelegramMessage) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.config.BotToken)

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("Sending Telegram message",
		zap.String("chat_id", message.ChatID),
		zap.String("text", message.Text[:min(100, len(message.Text))]))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var telegramResp TelegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&telegramResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !telegramResp.OK {
		return fmt.Errorf("telegram API error: %s (code: %d)", telegramResp.Description, telegramResp.ErrorCode)
	}

	logger.Info("Telegram message sent successfully")
	return nil
}

// ValidateConfig validates Telegram configuration
func (t *TelegramNotifier) ValidateConfig() error {
	if !t.config.Enabled {
		return nil
	}
	if t.config.BotToken == "" || t.config.ChatID == "" {
		return ErrNotConfigured
	}
	return nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
