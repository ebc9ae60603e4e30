package oracle

import (
	"context"
	"sync"
)

// StaticHost serves scripted responses. It backs the "static" provider for
// offline runs and is the fake of choice in tests.
type StaticHost struct {
	id string

	mu       sync.Mutex
	origin   string
	respond  func(prompt string) (string, error)
	status   Status
	loads    int
	sessions int
}

// NewStaticHost creates a host whose sessions answer with respond. A nil
// respond echoes "Others" for every prompt.
func NewStaticHost(id string, respond func(prompt string) (string, error)) *StaticHost {
	if respond == nil {
		respond = func(string) (string, error) { return "Others", nil }
	}
	return &StaticHost{
		id:      id,
		origin:  "https://static.local",
		respond: respond,
		status:  StatusReady,
	}
}

// ID identifies the host within a pool.
func (h *StaticHost) ID() string { return h.id }

// Origin is a synthetic https origin so the pool accepts the host.
func (h *StaticHost) Origin() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.origin
}

// SetOrigin overrides the origin, for pool scanning tests.
func (h *StaticHost) SetOrigin(origin string) {
	h.mu.Lock()
	h.origin = origin
	h.mu.Unlock()
}

// Status reports the scripted status.
func (h *StaticHost) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// SetStatus scripts the host's status.
func (h *StaticHost) SetStatus(st Status) {
	h.mu.Lock()
	h.status = st
	h.mu.Unlock()
}

// Capabilities always reports the capability as readily available.
func (h *StaticHost) Capabilities(_ context.Context) (Capabilities, error) {
	return Capabilities{
		Availability:       Available,
		DefaultTemperature: defaultTemperature,
		DefaultTopK:        defaultTopK,
	}, nil
}

// Load counts invocations so tests can assert load-once semantics.
func (h *StaticHost) Load(_ context.Context) error {
	h.mu.Lock()
	h.loads++
	h.mu.Unlock()
	return nil
}

// Loads returns how many times Load ran.
func (h *StaticHost) Loads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loads
}

// Sessions returns how many sessions were created.
func (h *StaticHost) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions
}

// NewSession creates a scripted session.
func (h *StaticHost) NewSession(_ context.Context, opts SessionOptions) (Session, error) {
	h.mu.Lock()
	h.sessions++
	h.mu.Unlock()

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultSessionCap
	}
	return &staticSession{host: h, maxTokens: maxTokens}, nil
}

type staticSession struct {
	host *StaticHost

	mu        sync.Mutex
	tokens    int
	maxTokens int
	released  bool
}

func (s *staticSession) Prompt(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return "", ErrUnavailable
	}
	s.mu.Unlock()

	reply, err := s.host.respond(text)
	if err != nil {
		return "", err
	}

	// Rough accounting: four characters per token is close enough for a fake.
	s.mu.Lock()
	s.tokens += (len(text) + len(reply)) / 4
	s.mu.Unlock()
	return reply, nil
}

func (s *staticSession) TokensSoFar() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *staticSession) MaxTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxTokens
}

func (s *staticSession) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}
