// Package notify sends transactional email (feedback notices, reminder
// campaigns) through the provider's JSON API and keeps an append-only log of
// what was already sent so campaigns can be re-run without double-mailing
// families.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.sendgrid.com/v3"

// Client sends mail through the provider API.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

// New returns a Client sending from the given address.
func New(apiKey, from string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithBaseURL is New against a different API root (tests).
func NewWithBaseURL(baseURL, apiKey, from string) *Client {
	c := New(apiKey, from)
	c.baseURL = baseURL
	return c
}

// Send delivers one message. The provider accepts the request with 202; any
// other status is an error.
func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload := map[string]any{
		"personalizations": []any{
			map[string]any{"to": []any{map[string]any{"email": to}}},
		},
		"from":    map[string]any{"email": c.from},
		"subject": subject,
		"content": []any{
			map[string]any{"type": "text/html", "value": htmlBody},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("mail API status %d: %s", resp.StatusCode, respBody)
	}
	log.Info().Str("to", to).Str("subject", subject).Msg("Mail sent")
	return nil
}
