package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Ollama defaults.
const (
	DefaultOllamaURL   = "http://localhost:11500"
	DefaultOllamaModel = "codellama"
)

// OllamaProvider implements Provider against an Ollama /api/generate
// endpoint. It never retries and sets no client timeout; callers bound
// the call through the context.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

var _ Provider = (*OllamaProvider)(nil)

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

// WithBaseURL sets the service root, e.g. http://localhost:11434.
func WithBaseURL(u string) OllamaOption {
	return func(p *OllamaProvider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithModel sets the default model.
func WithModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		p.model = model
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) OllamaOption {
	return func(p *OllamaProvider) {
		p.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OllamaOption {
	return func(p *OllamaProvider) {
		p.logger = l
	}
}

// NewOllamaProvider creates a provider with the given options.
func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		baseURL: DefaultOllamaURL,
		model:   DefaultOllamaModel,
		client:  &http.Client{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Model returns the default model.
func (p *OllamaProvider) Model() string {
	return p.model
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Error           string `json:"error,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete posts the prompt to <base>/api/generate with streaming off.
// Transport failures, non-2xx statuses and undecodable bodies return a
// *GenerationError.
func (p *OllamaProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	body, err := json.Marshal(generateRequest{Model: model, Prompt: req.Prompt, Stream: false})
	if err != nil {
		return nil, &GenerationError{Stage: StageRequest, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &GenerationError{Stage: StageRequest, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	p.logger.Debug("calling generation service", "url", httpReq.URL.String(), "model", model, "prompt_bytes", len(req.Prompt))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &GenerationError{Stage: StageRequest, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenerationError{Stage: StageDecode, Err: err}
	}

	var out generateResponse
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return nil, &GenerationError{Stage: StageStatus, Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)}
	}
	if decodeErr != nil {
		return nil, &GenerationError{Stage: StageDecode, Err: decodeErr}
	}
	if out.Error != "" {
		return nil, &GenerationError{Stage: StageStatus, Err: fmt.Errorf("%s", out.Error)}
	}

	if out.Model == "" {
		out.Model = model
	}
	return &Response{
		Content: out.Response,
		Model:   out.Model,
		Usage:   Usage{InputTokens: out.PromptEvalCount, OutputTokens: out.EvalCount},
	}, nil
}
