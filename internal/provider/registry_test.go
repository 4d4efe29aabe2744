package provider

import (
	"context"
	"errors"
	"testing"
)

type mockProvider struct {
	name        string
	completeErr error
	calls       int
}

func (m *mockProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	m.calls++
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	return &Response{Provider: m.name, Text: "mock"}, nil
}

func (m *mockProvider) Name() string         { return m.name }
func (m *mockProvider) DefaultModel() string { return "mock-model" }

func TestLookup_CaseInsensitive(t *testing.T) {
	r := NewRegistry(&mockProvider{name: "claude"})

	for _, name := range []string{"claude", "Claude", "CLAUDE"} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("Expected lookup %q to succeed", name)
		}
	}
}

func TestLookup_Unknown(t *testing.T) {
	r := NewRegistry(&mockProvider{name: "claude"})

	if _, ok := r.Lookup("unknown-llm"); ok {
		t.Error("Expected lookup of unknown provider to fail")
	}
}

func TestExecute(t *testing.T) {
	p := &mockProvider{name: "openai"}
	r := NewRegistry(p)

	resp, err := r.Execute(context.Background(), p, &Request{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Text != "mock" {
		t.Errorf("Expected mock response, got %s", resp.Text)
	}
}

func TestExecute_BreakerTrips(t *testing.T) {
	p := &mockProvider{name: "bad", completeErr: errors.New("fail")}
	r := NewRegistry(p)

	for i := 0; i < 3; i++ {
		_, _ = r.Execute(context.Background(), p, &Request{})
	}
	if p.calls != 3 {
		t.Fatalf("Expected 3 calls before trip, got %d", p.calls)
	}

	// Breaker is open now: the adapter is no longer invoked and the
	// failure is reported as the provider being unavailable.
	_, err := r.Execute(context.Background(), p, &Request{})
	var pErr *Error
	if !errors.As(err, &pErr) || pErr.Kind != KindUnavailable {
		t.Fatalf("Expected unavailable error from open breaker, got %v", err)
	}
	if p.calls != 3 {
		t.Errorf("Expected adapter not to be invoked with open breaker, got %d calls", p.calls)
	}
}
