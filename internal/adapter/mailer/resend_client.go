package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"digest-orchestrator/internal/domain"
	"digest-orchestrator/internal/infra/httpclient"
)

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// ResendClient sends digests through the Resend email API. The returned
// message ID is the join key for later webhook events.
type ResendClient struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

func NewResendClient(baseURL, apiKey, from string, timeout time.Duration) *ResendClient {
	return &ResendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
		client:  httpclient.NewPooledClient(timeout),
	}
}

func (c *ResendClient) SendEmail(ctx context.Context, to, subject, html, text string) (*domain.SendResult, error) {
	jsonPayload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/emails", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call email provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("email provider returned %d: %s", resp.StatusCode, string(body))
	}

	var sendResp sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sendResp); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}
	if sendResp.ID == "" {
		return nil, fmt.Errorf("email provider accepted the send but returned no message id")
	}

	return &domain.SendResult{MessageID: sendResp.ID}, nil
}

var _ domain.EmailProvider = (*ResendClient)(nil)
