package sms

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

// Client posts text messages to an HTTP SMS gateway
type Client struct {
	gatewayURL string
	apiKey     string
	sender     string
	httpClient *http.Client
}

// NewClient creates a new gateway client
func NewClient(gatewayURL, apiKey, sender string) *Client {
	return &Client{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		sender:     sender,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send delivers one message. Any non-2xx gateway answer is an error.
func (c *Client) Send(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(sendRequest{From: c.sender, To: to, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	log.Printf("[SMS] Sent message to %s", to)
	return nil
}
