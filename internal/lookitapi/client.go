// Package lookitapi is the client for the platform's JSON document API:
// session records, family accounts, and feedback updates. Responses are
// paginated; every fetch walks links.next to the end so callers always see
// the complete collection.
package lookitapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/paths"
	"github.com/mekline/lookit-data-processing/internal/records"
)

// Client talks to the platform API. API failures are returned as errors and
// treated as fatal by callers: the pipeline must not run against a
// half-fetched collection.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client for the given API root (no trailing slash) using
// token authentication.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Document is one record in an API collection.
type Document struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
}

type page struct {
	Data  []Document `json:"data"`
	Links struct {
		Next *string `json:"next"`
	} `json:"links"`
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// FetchCollection returns every record in a collection, following pagination
// links until exhausted.
func (c *Client) FetchCollection(ctx context.Context, collection string) ([]Document, error) {
	url := fmt.Sprintf("%s/collections/%s/records", c.baseURL, collection)
	var docs []Document
	for url != "" {
		var p page
		if err := c.get(ctx, url, &p); err != nil {
			return nil, err
		}
		docs = append(docs, p.Data...)
		if p.Links.Next == nil {
			break
		}
		url = *p.Links.Next
	}
	log.Debug().Str("collection", collection).Int("records", len(docs)).Msg("Fetched collection")
	return docs, nil
}

// FetchOne returns a single record by id.
func (c *Client) FetchOne(ctx context.Context, collection, id string) (Document, error) {
	url := fmt.Sprintf("%s/collections/%s/records/%s", c.baseURL, collection, id)
	var resp struct {
		Data Document `json:"data"`
	}
	if err := c.get(ctx, url, &resp); err != nil {
		return Document{}, err
	}
	return resp.Data, nil
}

// sessionCollection names the per-study session collection.
func sessionCollection(studyID string) string {
	return "session" + studyID + "s"
}

// Sessions fetches every session of a study, keyed by canonical session key.
func (c *Client) Sessions(ctx context.Context, studyID string) (map[string]records.SessionRecord, error) {
	docs, err := c.FetchCollection(ctx, sessionCollection(studyID))
	if err != nil {
		return nil, fmt.Errorf("fetching sessions for study %s: %w", studyID, err)
	}
	sessions := make(map[string]records.SessionRecord, len(docs))
	for _, d := range docs {
		sessions[paths.SessionKey(studyID, d.ID)] = records.SessionRecord{ID: d.ID, Attributes: d.Attributes}
	}
	return sessions, nil
}

// Accounts fetches every family account, keyed by account id.
func (c *Client) Accounts(ctx context.Context) (map[string]records.Account, error) {
	docs, err := c.FetchCollection(ctx, "accounts")
	if err != nil {
		return nil, fmt.Errorf("fetching accounts: %w", err)
	}
	accounts := make(map[string]records.Account, len(docs))
	for _, d := range docs {
		accounts[d.ID] = records.Account{ID: d.ID, Attributes: d.Attributes}
	}
	return accounts, nil
}

// UpdateFeedback replaces the researcher feedback on one session record.
func (c *Client) UpdateFeedback(ctx context.Context, studyID, sessionID, feedback string) error {
	url := fmt.Sprintf("%s/collections/%s/records/%s", c.baseURL, sessionCollection(studyID), sessionID)
	payload := map[string]any{
		"data": map[string]any{
			"id":         sessionID,
			"type":       "records",
			"attributes": map[string]any{"feedback": feedback},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("updating feedback for %s: %w", sessionID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("PATCH %s: status %d: %s", url, resp.StatusCode, respBody)
	}
	log.Info().Str("session", sessionID).Msg("Feedback updated")
	return nil
}
