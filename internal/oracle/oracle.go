// Package oracle abstracts the language-model capability used for bookmark
// classification. A Host is a candidate execution context for the capability;
// a Session is a live prompt/response channel with a token budget. The Pool
// locates and caches the first usable host.
package oracle

import (
	"context"
	"errors"
)

var (
	ErrNoUsableHost = errors.New("oracle: no usable host")
	ErrUnavailable  = errors.New("oracle: capability unavailable")
)

// Availability is the result of a capability check.
type Availability string

const (
	Unavailable   Availability = "no"
	AfterDownload Availability = "after-download"
	Available     Availability = "readily"
)

// Status describes whether a host can currently serve sessions.
type Status string

const (
	StatusReady    Status = "ready"
	StatusUnloaded Status = "unloaded"
)

// Capabilities reports a host's availability and default sampling parameters.
type Capabilities struct {
	Availability       Availability
	DefaultTemperature float64
	DefaultTopK        int
}

// SessionOptions configure a new classification session.
type SessionOptions struct {
	SystemPrompt string
	Temperature  float64
	TopK         int
	MaxTokens    int // session token budget; 0 = host default
}

// Session is a live prompt/response channel. TokensSoFar and MaxTokens track
// the running usage against the session budget.
type Session interface {
	Prompt(ctx context.Context, text string) (string, error)
	TokensSoFar() int
	MaxTokens() int
	Release()
}

// Host is a candidate execution context for the classification capability.
type Host interface {
	// ID identifies the host within a pool.
	ID() string
	// Origin is the host's endpoint origin; the pool only considers
	// http(s) origins.
	Origin() string
	// Status reports whether the host can currently serve sessions.
	Status() Status
	// Load performs the one-time capability load for this host's lifetime.
	Load(ctx context.Context) error
	// Capabilities checks the host for availability and defaults.
	Capabilities(ctx context.Context) (Capabilities, error)
	// NewSession creates a session. The host must be loaded first.
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
}
