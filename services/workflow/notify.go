package workflow

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Notifier delivers a message to a provider-specific target (webhook URL,
// mail address). Executors treat delivery failure as data; the notifier just
// reports it.
type Notifier interface {
	Send(ctx context.Context, target, message string) error
}

// WebhookNotifier posts a one-field JSON payload to a webhook URL. Slack
// expects {"text": ...}, Discord {"content": ...}; the field name is the only
// difference.
type WebhookNotifier struct {
	client *http.Client
	field  string
}

// NewWebhookNotifier returns a webhook notifier posting under the given
// payload field with a 10-second timeout.
func NewWebhookNotifier(field string) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: 10 * time.Second},
		field:  field,
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, target, message string) error {
	if target == "" {
		return fmt.Errorf("no webhook url configured")
	}

	payload, err := json.Marshal(map[string]string{n.field: message})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// SMTPNotifier sends mail through a plain SMTP relay. Credentials are opaque
// to the engine; they arrive via configuration and pass straight through.
type SMTPNotifier struct {
	addr     string // host:port
	from     string
	username string
	password string
}

// NewSMTPNotifier returns an SMTP-backed mailer. An empty addr yields a
// notifier that fails every send, which executors surface as error data.
func NewSMTPNotifier(addr, from, username, password string) *SMTPNotifier {
	return &SMTPNotifier{addr: addr, from: from, username: username, password: password}
}

func (n *SMTPNotifier) Send(_ context.Context, target, message string) error {
	if n.addr == "" {
		return fmt.Errorf("no smtp relay configured")
	}
	if target == "" {
		return fmt.Errorf("no recipient configured")
	}

	var auth smtp.Auth
	if n.username != "" {
		host := n.addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", n.username, n.password, host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\n%s", n.from, target, message)
	if err := smtp.SendMail(n.addr, auth, n.from, []string{target}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
