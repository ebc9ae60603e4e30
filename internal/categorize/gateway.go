// Package categorize holds the classification gateway: the single owner of
// the oracle session, its token budget, and the retry/fallback policy around
// every classification call.
package categorize

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/nikbrunner/tidymark/internal/oracle"
)

var (
	ErrMalformedResponse = errors.New("categorize: malformed oracle response")
	ErrCountMismatch     = errors.New("categorize: category count mismatch")
)

// Item is one bookmark to classify.
type Item struct {
	Title string
	URL   string
}

// Options tune the gateway's retry policy and session budget.
type Options struct {
	SingleAttempts int           // attempts per ClassifyOne call
	BatchAttempts  int           // attempts per ClassifyMany call
	RetryDelay     time.Duration // pause between attempts
	SessionBudget  int           // token budget per session
	TokenBuffer    int           // replace the session below this reserve
}

// DefaultOptions returns the gateway defaults.
func DefaultOptions() Options {
	return Options{
		SingleAttempts: 5,
		BatchAttempts:  10,
		RetryDelay:     500 * time.Millisecond,
		SessionBudget:  6144,
		TokenBuffer:    512,
	}
}

// Gateway classifies bookmarks through the oracle. Both entry points are
// total: any internal fault degrades to the keyword fallback instead of
// surfacing, so a classification failure can never abort the pipeline.
type Gateway struct {
	pool *oracle.Pool
	opts Options

	mu      sync.Mutex
	session oracle.Session
	host    oracle.Host

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// NewGateway creates a Gateway over the given host pool. Zero option fields
// take their defaults.
func NewGateway(pool *oracle.Pool, opts Options) *Gateway {
	def := DefaultOptions()
	if opts.SingleAttempts <= 0 {
		opts.SingleAttempts = def.SingleAttempts
	}
	if opts.BatchAttempts <= 0 {
		opts.BatchAttempts = def.BatchAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.SessionBudget <= 0 {
		opts.SessionBudget = def.SessionBudget
	}
	if opts.TokenBuffer <= 0 {
		opts.TokenBuffer = def.TokenBuffer
	}
	return &Gateway{pool: pool, opts: opts}
}

// ClassifyOne returns a single category for the bookmark. It never fails:
// after the retry cap it returns the keyword fallback.
func (g *Gateway) ClassifyOne(ctx context.Context, title, url string) string {
	prompt := buildSinglePrompt(title, url)

	for attempt := 1; attempt <= g.opts.SingleAttempts; attempt++ {
		reply, err := g.prompt(ctx, prompt)
		if err == nil {
			if category := strings.TrimSpace(reply); category != "" {
				return category
			}
			err = ErrMalformedResponse
		}
		slog.Debug("categorize: single attempt failed",
			"attempt", attempt, "err", err)
		if attempt < g.opts.SingleAttempts && !g.pause(ctx) {
			break
		}
	}

	category := KeywordCategorize(title, url)
	slog.Info("categorize: falling back", "title", title, "category", category)
	return category
}

// ClassifyMany returns exactly one category per item, in input order. A batch
// is accepted whole or not at all; after the retry cap every item gets the
// keyword fallback.
func (g *Gateway) ClassifyMany(ctx context.Context, items []Item) []string {
	if len(items) == 0 {
		return nil
	}
	prompt := buildBatchPrompt(items)

	for attempt := 1; attempt <= g.opts.BatchAttempts; attempt++ {
		reply, err := g.prompt(ctx, prompt)
		if err == nil {
			categories, perr := parseBatchResponse(reply, len(items))
			if perr == nil {
				return categories
			}
			err = perr
		}
		slog.Debug("categorize: batch attempt failed",
			"attempt", attempt, "size", len(items), "err", err)
		if attempt < g.opts.BatchAttempts && !g.pause(ctx) {
			break
		}
	}

	slog.Info("categorize: batch falling back", "size", len(items))
	categories := make([]string, len(items))
	for i, item := range items {
		categories[i] = KeywordCategorize(item.Title, item.URL)
	}
	return categories
}

// prompt runs one oracle round trip on a session with enough remaining budget.
func (g *Gateway) prompt(ctx context.Context, text string) (string, error) {
	sess, err := g.ensureSession(ctx, g.estimateTokens(text))
	if err != nil {
		return "", err
	}
	reply, err := sess.Prompt(ctx, text)
	if err != nil {
		g.dropSession()
		return "", err
	}
	return reply, nil
}

// ensureSession returns a live session whose remaining budget covers the
// estimated prompt cost plus the reserve buffer, replacing the session when
// it cannot serve.
func (g *Gateway) ensureSession(ctx context.Context, estimate int) (oracle.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session != nil {
		remaining := g.session.MaxTokens() - g.session.TokensSoFar() - estimate
		if g.host.Status() == oracle.StatusReady && remaining >= g.opts.TokenBuffer {
			return g.session, nil
		}
		slog.Debug("categorize: replacing session",
			"host", g.host.ID(),
			"tokensSoFar", g.session.TokensSoFar(),
			"maxTokens", g.session.MaxTokens())
		g.session.Release()
		g.session = nil
		if g.host.Status() != oracle.StatusReady {
			g.pool.Invalidate()
		}
		g.host = nil
	}

	host, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	caps, err := host.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := host.NewSession(ctx, oracle.SessionOptions{
		SystemPrompt: systemPrompt,
		Temperature:  caps.DefaultTemperature,
		TopK:         caps.DefaultTopK,
		MaxTokens:    g.opts.SessionBudget,
	})
	if err != nil {
		g.pool.Invalidate()
		return nil, err
	}

	g.session = sess
	g.host = host
	return sess, nil
}

// dropSession discards the current session after a failed prompt.
func (g *Gateway) dropSession() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return
	}
	g.session.Release()
	g.session = nil
	if g.host != nil && g.host.Status() != oracle.StatusReady {
		g.pool.Invalidate()
	}
	g.host = nil
}

// Close releases the current session, if any.
func (g *Gateway) Close() {
	g.dropSession()
}

// estimateTokens projects the token cost of a prompt. Uses tiktoken when the
// encoding loads; otherwise a four-characters-per-token estimate.
func (g *Gateway) estimateTokens(text string) int {
	g.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Debug("categorize: tiktoken unavailable, using rough estimate", "err", err)
			return
		}
		g.enc = enc
	})
	if g.enc != nil {
		return len(g.enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}

// pause sleeps the retry delay; false means the context is done.
func (g *Gateway) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(g.opts.RetryDelay):
		return true
	}
}
