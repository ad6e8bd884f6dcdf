package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultResendEndpoint = "https://api.resend.com/emails"

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is a rendered email ready to send.
type Message struct {
	From        string
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Sender delivers a message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender delivers mail through the Resend HTTP API.
type ResendSender struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewResendSender(apiKey string, client *http.Client) *ResendSender {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ResendSender{apiKey: apiKey, endpoint: defaultResendEndpoint, client: client}
}

// WithEndpoint points the sender at another API base (used by tests).
func (s *ResendSender) WithEndpoint(endpoint string) *ResendSender {
	s.endpoint = endpoint
	return s
}

type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendEmail struct {
	From        string             `json:"from"`
	To          string             `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	payload := resendEmail{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}
	for _, att := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Filename: att.Filename,
			Content:  base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send email: resend responded %s", resp.Status)
	}
	return nil
}

// LogSender only records messages. It is used when no mail API key is
// configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("mail delivery skipped, no provider configured",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	return nil
}

func buildMessage(from string, n Notification, document []byte) Message {
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; color: #333;">
<h1>Hello %s!</h1>
<p>Thanks for your purchase. Your tickets for <strong>%s</strong> are attached.</p>
<p>Zone: %s<br>Quantity: %d<br>Total: %s</p>
<p>Each ticket admits one person and can be scanned only once.</p>
</div>`,
		html.EscapeString(n.Buyer.Name),
		html.EscapeString(n.Event.Name),
		html.EscapeString(n.Zone.Name),
		n.Purchase.Quantity,
		formatAmount(n.Purchase.Total),
	)
	return Message{
		From:    from,
		To:      n.Buyer.Email,
		Subject: fmt.Sprintf("Your tickets for %s", n.Event.Name),
		HTML:    body,
		Attachments: []Attachment{{
			Filename: fmt.Sprintf("tickets-%s.pdf", n.Purchase.ID),
			Content:  document,
		}},
	}
}
