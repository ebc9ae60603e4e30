package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
	anthropicModel    = "claude-haiku-4-5-20251001"

	defaultTemperature  = 1.0
	defaultTopK         = 3
	defaultSessionCap   = 6144
	anthropicMaxReplyTk = 256
)

var (
	ErrNoAPIKey        = errors.New("oracle: api key environment variable not set")
	ErrAPIRequest      = errors.New("oracle: api request failed")
	ErrInvalidResponse = errors.New("oracle: invalid api response")
)

// AnthropicHost runs classification sessions against the Anthropic API.
type AnthropicHost struct {
	endpoint  string
	model     string
	apiKeyEnv string

	mu         sync.Mutex
	httpClient *http.Client
	apiKey     string
	unloaded   bool
}

// AnthropicOption configures an AnthropicHost.
type AnthropicOption func(*AnthropicHost)

// WithAnthropicEndpoint overrides the API endpoint, mainly for tests.
func WithAnthropicEndpoint(endpoint string) AnthropicOption {
	return func(h *AnthropicHost) { h.endpoint = endpoint }
}

// WithAnthropicModel overrides the model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(h *AnthropicHost) { h.model = model }
}

// NewAnthropicHost creates a host reading its key from ANTHROPIC_API_KEY.
func NewAnthropicHost(opts ...AnthropicOption) *AnthropicHost {
	h := &AnthropicHost{
		endpoint:  anthropicEndpoint,
		model:     anthropicModel,
		apiKeyEnv: "ANTHROPIC_API_KEY",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ID identifies the host within a pool.
func (h *AnthropicHost) ID() string { return "anthropic/" + h.model }

// Origin is the API endpoint origin.
func (h *AnthropicHost) Origin() string { return h.endpoint }

// Status reports whether the host can currently serve sessions.
func (h *AnthropicHost) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return StatusUnloaded
	}
	return StatusReady
}

// Capabilities reports availability: the host is usable iff a key is set.
func (h *AnthropicHost) Capabilities(_ context.Context) (Capabilities, error) {
	if os.Getenv(h.apiKeyEnv) == "" {
		return Capabilities{Availability: Unavailable}, nil
	}
	return Capabilities{
		Availability:       Available,
		DefaultTemperature: defaultTemperature,
		DefaultTopK:        defaultTopK,
	}, nil
}

// Load resolves the API key and builds the HTTP client, once per lifetime.
func (h *AnthropicHost) Load(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	apiKey := os.Getenv(h.apiKeyEnv)
	if apiKey == "" {
		return ErrNoAPIKey
	}
	h.apiKey = apiKey
	h.httpClient = &http.Client{Timeout: 30 * time.Second}
	h.unloaded = false
	return nil
}

// NewSession creates a classification session with the given options.
func (h *AnthropicHost) NewSession(_ context.Context, opts SessionOptions) (Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.httpClient == nil {
		return nil, ErrUnavailable
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultSessionCap
	}
	return &anthropicSession{
		host:      h,
		system:    opts.SystemPrompt,
		temp:      opts.Temperature,
		topK:      opts.TopK,
		maxTokens: maxTokens,
	}, nil
}

// markUnloaded flips the host out of service. Reserved for authentication
// failures; transient faults must leave the host eligible for retries.
func (h *AnthropicHost) markUnloaded() {
	h.mu.Lock()
	h.unloaded = true
	h.mu.Unlock()
}

type anthropicSession struct {
	host   *AnthropicHost
	system string
	temp   float64
	topK   int

	mu        sync.Mutex
	tokens    int
	maxTokens int
	released  bool
}

// apiRequest represents the Anthropic API request body.
type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
	TopK        int          `json:"top_k,omitempty"`
	Messages    []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiResponse represents the Anthropic API response body.
type apiResponse struct {
	Content []contentBlock `json:"content"`
	Usage   apiUsage       `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Prompt sends one user message and returns the model's text reply.
func (s *anthropicSession) Prompt(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return "", ErrUnavailable
	}
	s.mu.Unlock()

	reqBody := apiRequest{
		Model:       s.host.model,
		MaxTokens:   anthropicMaxReplyTk,
		System:      s.system,
		Temperature: s.temp,
		TopK:        s.topK,
		Messages: []apiMessage{
			{Role: "user", Content: text},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.host.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.host.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.host.httpClient.Do(req)
	if err != nil {
		// Transport faults are transient; the host stays in service so the
		// gateway's retry loop can reach it again.
		return "", fmt.Errorf("%w: %v", ErrAPIRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			s.host.markUnloaded()
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrAPIRequest, resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Content) == 0 || apiResp.Content[0].Type != "text" {
		return "", ErrInvalidResponse
	}

	s.mu.Lock()
	s.tokens += apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens
	s.mu.Unlock()

	return apiResp.Content[0].Text, nil
}

func (s *anthropicSession) TokensSoFar() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *anthropicSession) MaxTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxTokens
}

func (s *anthropicSession) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}
