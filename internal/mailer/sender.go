// Package mailer delivers the notification emails queued by the gateway. It
// speaks the Brevo transactional API when a key is configured and falls back
// to logging the email in development.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const defaultAPIBaseURL = "https://api.brevo.com"

type Email struct {
	To          string
	ToName      string
	Subject     string
	TextContent string
	HTMLContent string
}

type Sender interface {
	Send(ctx context.Context, email Email) error
}

// BrevoSender sends through the Brevo transactional email HTTP API.
type BrevoSender struct {
	apiKey    string
	fromEmail string
	fromName  string
	baseURL   string
	client    *http.Client
}

func NewBrevoSender(apiKey, fromEmail, fromName string) *BrevoSender {
	return &BrevoSender{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   defaultAPIBaseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendEmailRequest struct {
	Sender      emailAddress   `json:"sender"`
	To          []emailAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent,omitempty"`
	TextContent string         `json:"textContent,omitempty"`
}

func (s *BrevoSender) Send(ctx context.Context, email Email) error {
	body, err := json.Marshal(sendEmailRequest{
		Sender:      emailAddress{Email: s.fromEmail, Name: s.fromName},
		To:          []emailAddress{{Email: email.To, Name: email.ToName}},
		Subject:     email.Subject,
		HTMLContent: email.HTMLContent,
		TextContent: email.TextContent,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, detail)
	}

	return nil
}

// LogSender logs emails instead of delivering them. Used when no API key is
// configured.
type LogSender struct {
	log *log.Logger
}

func NewLogSender(logger *log.Logger) *LogSender {
	return &LogSender{log: logger}
}

func (s *LogSender) Send(_ context.Context, email Email) error {
	s.log.Printf("dev mode, not sending email to=%s subject=%q body=%q", email.To, email.Subject, email.TextContent)
	return nil
}
