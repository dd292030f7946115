package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/campus-records-api/pkg/config"
)

// Reply is the outcome of a generation call: either text or the reason none is available.
type Reply struct {
	Text      string
	Available bool
	Reason    string
}

// Available wraps generated text.
func Available(text string) Reply { return Reply{Text: text, Available: true} }

// Unavailable reports that no text could be produced.
func Unavailable(reason string) Reply { return Reply{Reason: reason} }

// Generator produces text from a prompt. Implementations never return errors;
// failures are reported as Unavailable replies.
type Generator interface {
	Generate(ctx context.Context, prompt string) Reply
}

// Disabled is used when no endpoint is configured.
type Disabled struct{}

// Generate always reports the assistant as unavailable.
func (Disabled) Generate(context.Context, string) Reply {
	return Unavailable("assistant is not configured")
}

// HTTPGenerator posts prompts to a text generation endpoint.
type HTTPGenerator struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

type generateRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// maxResponseBytes bounds how much of an upstream reply is read.
const maxResponseBytes = 1 << 20

// NewHTTPGenerator constructs an HTTPGenerator. A nil client gets the configured timeout.
func NewHTTPGenerator(cfg config.AssistantConfig, client *http.Client) *HTTPGenerator {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPGenerator{endpoint: cfg.Endpoint, apiKey: cfg.APIKey, model: cfg.Model, client: client}
}

// New returns an HTTP generator when an endpoint is configured, Disabled otherwise.
func New(cfg config.AssistantConfig) Generator {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return Disabled{}
	}
	return NewHTTPGenerator(cfg, nil)
}

// Generate sends the prompt and returns the reply text.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) Reply {
	body, err := json.Marshal(generateRequest{Model: g.model, Prompt: prompt})
	if err != nil {
		return Unavailable(err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return Unavailable(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Unavailable(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Unavailable(err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Unavailable(fmt.Sprintf("upstream status %d", resp.StatusCode))
	}
	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Unavailable("undecodable upstream reply")
	}
	if decoded.Error != "" {
		return Unavailable(decoded.Error)
	}
	if strings.TrimSpace(decoded.Text) == "" {
		return Unavailable("empty upstream reply")
	}
	return Available(decoded.Text)
}
