package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openaiEndpoint = "https://api.openai.com/v1"

// OpenAIHost runs classification sessions against an OpenAI-compatible API.
type OpenAIHost struct {
	endpoint  string
	model     string
	apiKeyEnv string

	mu       sync.Mutex
	client   *openai.Client
	unloaded bool
}

// OpenAIOption configures an OpenAIHost.
type OpenAIOption func(*OpenAIHost)

// WithOpenAIEndpoint overrides the base URL, enabling compatible services.
func WithOpenAIEndpoint(endpoint string) OpenAIOption {
	return func(h *OpenAIHost) { h.endpoint = endpoint }
}

// WithOpenAIModel overrides the model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(h *OpenAIHost) { h.model = model }
}

// NewOpenAIHost creates a host reading its key from OPENAI_API_KEY.
func NewOpenAIHost(opts ...OpenAIOption) *OpenAIHost {
	h := &OpenAIHost{
		endpoint:  openaiEndpoint,
		model:     "gpt-4o-mini",
		apiKeyEnv: "OPENAI_API_KEY",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ID identifies the host within a pool.
func (h *OpenAIHost) ID() string { return "openai/" + h.model }

// Origin is the API endpoint origin.
func (h *OpenAIHost) Origin() string { return h.endpoint }

// Status reports whether the host can currently serve sessions.
func (h *OpenAIHost) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return StatusUnloaded
	}
	return StatusReady
}

// Capabilities reports availability: the host is usable iff a key is set.
func (h *OpenAIHost) Capabilities(_ context.Context) (Capabilities, error) {
	if os.Getenv(h.apiKeyEnv) == "" {
		return Capabilities{Availability: Unavailable}, nil
	}
	return Capabilities{
		Availability:       Available,
		DefaultTemperature: defaultTemperature,
		DefaultTopK:        defaultTopK,
	}, nil
}

// Load builds the API client, once per lifetime.
func (h *OpenAIHost) Load(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	apiKey := os.Getenv(h.apiKeyEnv)
	if apiKey == "" {
		return ErrNoAPIKey
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(h.endpoint),
	)
	h.client = &client
	h.unloaded = false
	return nil
}

// NewSession creates a classification session with the given options.
func (h *OpenAIHost) NewSession(_ context.Context, opts SessionOptions) (Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return nil, ErrUnavailable
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultSessionCap
	}
	return &openaiSession{
		host:      h,
		system:    opts.SystemPrompt,
		temp:      opts.Temperature,
		maxTokens: maxTokens,
	}, nil
}

func (h *OpenAIHost) markUnloaded() {
	h.mu.Lock()
	h.unloaded = true
	h.mu.Unlock()
}

type openaiSession struct {
	host   *OpenAIHost
	system string
	temp   float64

	mu        sync.Mutex
	tokens    int
	maxTokens int
	released  bool
}

// Prompt sends one user message and returns the model's text reply.
func (s *openaiSession) Prompt(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return "", ErrUnavailable
	}
	s.mu.Unlock()

	resp, err := s.host.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.host.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(s.system),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(s.temp),
	})
	if err != nil {
		// Only an auth failure takes the host out of service; transient
		// faults leave it eligible for the gateway's retries.
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			s.host.markUnloaded()
		}
		return "", fmt.Errorf("%w: %v", ErrAPIRequest, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrInvalidResponse
	}

	s.mu.Lock()
	s.tokens += int(resp.Usage.TotalTokens)
	s.mu.Unlock()

	return resp.Choices[0].Message.Content, nil
}

func (s *openaiSession) TokensSoFar() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *openaiSession) MaxTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxTokens
}

func (s *openaiSession) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}
