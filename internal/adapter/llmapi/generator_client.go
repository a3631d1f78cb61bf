package llmapi

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

// digestFormat constrains the model to the exact JSON shape the draft
// generator expects, so parsing failures are provider bugs, not prompt luck.
var digestFormat = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"subject":   map[string]interface{}{"type": "string"},
		"body_html": map[string]interface{}{"type": "string"},
		"body_text": map[string]interface{}{"type": "string"},
	},
	"required": []string{"subject", "body_html", "body_text"},
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string                 `json:"model"`
	Messages  []chatMessage          `json:"messages"`
	KeepAlive int                    `json:"keep_alive"`
	Format    map[string]interface{} `json:"format"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

type digestPayload struct {
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text"`
}

// GeneratorClient talks to an Ollama-compatible chat endpoint and returns
// structured digest output.
type GeneratorClient struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewGeneratorClient(baseURL, model string, timeout time.Duration) *GeneratorClient {
	return &GeneratorClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  httpclient.NewPooledClient(timeout),
	}
}

func (g *GeneratorClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.GeneratedDigest, error) {
	reqBody := chatRequest{
		Model:     g.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		KeepAlive: -1,
		Format:    digestFormat,
		Options: map[string]interface{}{
			"temperature": 0.4,
		},
	}
	if maxTokens > 0 {
		reqBody.Options["num_predict"] = maxTokens
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGenerationProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: endpoint returned %d: %s", domain.ErrGenerationProvider, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}

	var payload digestPayload
	content := strings.TrimSpace(chatResp.Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed digest payload: %s", domain.ErrGenerationProvider, err)
	}
	if payload.Subject == "" || (payload.BodyHTML == "" && payload.BodyText == "") {
		return nil, fmt.Errorf("%w: digest payload missing subject or body", domain.ErrGenerationProvider)
	}

	return &domain.GeneratedDigest{
		Subject:  payload.Subject,
		BodyHTML: payload.BodyHTML,
		BodyText: payload.BodyText,
	}, nil
}

// Model returns the wrapped model name.
func (g *GeneratorClient) Model() string {
	return g.model
}

var _ domain.LLMClient = (*GeneratorClient)(nil)
