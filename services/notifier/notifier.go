package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"learntube-api-go/config"
	"learntube-api-go/logcolors"
	"net/http"
	"net/smtp"
	"time"

	log "github.com/sirupsen/logrus"
)

// Notifier delivers an operator alert
type Notifier interface {
	Send(ctx context.Context, subject, message string) error
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// =============================================================================
// EMAIL NOTIFIER
// =============================================================================

type EmailNotifier struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	ToEmail      string
}

func (e *EmailNotifier) Send(ctx context.Context, subject, message string) error {
	auth := smtp.PlainAuth("", e.SMTPUsername, e.SMTPPassword, e.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.FromEmail, e.ToEmail, subject, message))

	// net/smtp has no context support; the check only skips sends after shutdown
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(e.SMTPHost+":"+e.SMTPPort, auth, e.FromEmail, []string{e.ToEmail}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Infof("%s Email notification sent to %s", logcolors.LogNotifier, e.ToEmail)
	return nil
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string // Default: https://api.telegram.org
}

func (t *TelegramNotifier) Send(ctx context.Context, subject, message string) error {
	base := t.APIBase
	if base == "" {
		base = "https://api.telegram.org"
	}

	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":    t.ChatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", subject, message),
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	log.Infof("%s Telegram notification sent to chat %s", logcolors.LogNotifier, t.ChatID)
	return nil
}

// =============================================================================
// NTFY.SH NOTIFIER
// =============================================================================

type NtfyNotifier struct {
	Topic    string
	Server   string // Default: https://ntfy.sh
	Priority string // Default: high
}

func (n *NtfyNotifier) Send(ctx context.Context, subject, message string) error {
	server := n.Server
	if server == "" {
		server = "https://ntfy.sh"
	}
	priority := n.Priority
	if priority == "" {
		priority = "high"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", server, n.Topic), bytes.NewBufferString(message))
	if err != nil {
		return fmt.Errorf("failed to create ntfy request: %w", err)
	}
	req.Header.Set("Title", subject)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", "warning")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	log.Infof("%s Ntfy notification sent to topic %s", logcolors.LogNotifier, n.Topic)
	return nil
}

// FromConfig builds every notifier whose credentials are configured
func FromConfig(c config.Config) []Notifier {
	var notifiers []Notifier

	if c.Notifier.SMTPHost != "" {
		notifiers = append(notifiers, &EmailNotifier{
			SMTPHost:     c.Notifier.SMTPHost,
			SMTPPort:     c.Notifier.SMTPPort,
			SMTPUsername: c.Notifier.SMTPUsername,
			SMTPPassword: c.Notifier.SMTPPassword,
			FromEmail:    c.Notifier.FromEmail,
			ToEmail:      c.Notifier.ToEmail,
		})
		log.Infof("%s Email notifier enabled", logcolors.LogNotifier)
	}

	if c.Notifier.TelegramBotToken != "" {
		notifiers = append(notifiers, &TelegramNotifier{
			BotToken: c.Notifier.TelegramBotToken,
			ChatID:   c.Notifier.TelegramChatID,
		})
		log.Infof("%s Telegram notifier enabled", logcolors.LogNotifier)
	}

	if c.Notifier.NtfyTopic != "" {
		notifiers = append(notifiers, &NtfyNotifier{
			Topic:  c.Notifier.NtfyTopic,
			Server: c.Notifier.NtfyServer,
		})
		log.Infof("%s Ntfy.sh notifier enabled", logcolors.LogNotifier)
	}

	return notifiers
}
