package provider

import (
	"context"
	"encoding/json"
)

// Request is the canonical, provider-agnostic form of an AI call.
type Request struct {
	Messages    []Message
	Model       string // empty means the adapter's default
	MaxTokens   int
	Temperature float64
	// Metadata carried through for logging/tracing
	UserID    string
	RequestID string
}

type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Response is the canonical result. Usage is the backend's token
// accounting envelope, passed through opaquely.
type Response struct {
	Provider string
	Model    string
	Text     string
	Usage    json.RawMessage
}

type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	Name() string
	DefaultModel() string
}
