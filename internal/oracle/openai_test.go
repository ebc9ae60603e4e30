package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newLoadedOpenAIHost(t *testing.T, endpoint string) *OpenAIHost {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	host := NewOpenAIHost(WithOpenAIEndpoint(endpoint))
	if err := host.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return host
}

func TestOpenAIHost_TransientFaultKeepsHostInService(t *testing.T) {
	// Nothing listens here; every prompt fails at the transport layer.
	host := newLoadedOpenAIHost(t, "http://127.0.0.1:1")
	ctx := context.Background()

	sess, err := host.NewSession(ctx, SessionOptions{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := sess.Prompt(ctx, "hello"); err == nil {
		t.Fatal("expected a transport error")
	}
	if host.Status() != StatusReady {
		t.Error("transient transport fault took the host out of service")
	}
}

func TestOpenAIHost_UnauthorizedUnloadsHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	host := newLoadedOpenAIHost(t, srv.URL)
	ctx := context.Background()

	sess, err := host.NewSession(ctx, SessionOptions{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := sess.Prompt(ctx, "hello"); err == nil {
		t.Fatal("expected an auth error")
	}
	if host.Status() != StatusUnloaded {
		t.Error("auth failure should take the host out of service")
	}
}
