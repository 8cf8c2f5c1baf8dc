// Package email delivers transactional mail through the Resend API, falling
// back to a log-only sender when email is disabled.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
)

const resendEndpoint = "https://api.resend.com/emails"

// Sender delivers a rendered email.
type Sender interface {
	Send(to, subject, html string) error
}

// ResendClient sends mail through the Resend REST API.
type ResendClient struct {
	apiKey     string
	from       string
	endpoint   string
	httpClient *http.Client
}

// NewResendClient creates a Resend API client.
func NewResendClient(apiKey, from string) *ResendClient {
	return &ResendClient{
		apiKey:   apiKey,
		from:     from,
		endpoint: resendEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send posts the email to the Resend API.
func (c *ResendClient) Send(to, subject, html string) error {
	payload, err := json.Marshal(resendRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	defer resp.Body.Close()

	var result resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("failed to decode response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if result.Message != "" {
			return fmt.Errorf("resend returned status %d: %s", resp.StatusCode, result.Message)
		}
		return fmt.Errorf("resend returned status %d", resp.StatusCode)
	}

	log.Printf("[EMAIL] Sent %q to %s (id %s)", subject, to, result.ID)
	return nil
}

// LogSender writes emails to the log instead of delivering them. It is the
// sender of choice for development and tests.
type LogSender struct{}

// Send logs the email.
func (LogSender) Send(to, subject, html string) error {
	log.Printf("[EMAIL] (not sent) to=%s subject=%q", to, subject)
	return nil
}

// NewSender picks the Resend client when email delivery is enabled and a key
// is configured, the log sender otherwise.
func NewSender(cfg *config.Config) Sender {
	if cfg.EmailEnabled && cfg.ResendAPIKey != "" {
		log.Printf("[EMAIL] Sending through Resend as %s", cfg.EmailFrom)
		return NewResendClient(cfg.ResendAPIKey, cfg.EmailFrom)
	}
	log.Printf("[EMAIL] Email delivery disabled, messages will be logged")
	return LogSender{}
}
