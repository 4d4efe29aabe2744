package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alphatracesol/operator-uplift-gateway/internal/provider"
)

// Groq speaks the OpenAI chat-completions dialect but lives on its own
// endpoint with its own credential and model catalog, so it gets its
// own adapter rather than piggybacking on the openai one.
type GroqProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Choices []groqChoice    `json:"choices"`
	Usage   json.RawMessage `json:"usage"`
}

type groqChoice struct {
	Message groqMessage `json:"message"`
}

func New(apiKey string, timeout time.Duration) provider.Provider {
	return &GroqProvider{
		apiKey:  apiKey,
		baseURL: "https://api.groq.com/openai/v1",
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *GroqProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body, err := json.Marshal(p.mapRequest(req))
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, provider.Unavailable(p.Name(), 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, provider.ClassifyStatus(p.Name(), resp.StatusCode, string(respBody))
	}

	var groqResp groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return nil, provider.Malformed(p.Name(), err.Error())
	}

	if len(groqResp.Choices) == 0 {
		return nil, provider.Malformed(p.Name(), "no choices in response")
	}

	return &provider.Response{
		Provider: p.Name(),
		Model:    groqResp.Model,
		Text:     groqResp.Choices[0].Message.Content,
		Usage:    groqResp.Usage,
	}, nil
}

func (p *GroqProvider) mapRequest(req *provider.Request) groqRequest {
	messages := make([]groqMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = groqMessage{Role: m.Role, Content: m.Content}
	}

	model := req.Model
	if model == "" {
		model = p.DefaultModel()
	}

	return groqRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

func (p *GroqProvider) Name() string {
	return "groq"
}

func (p *GroqProvider) DefaultModel() string {
	return "llama-3.1-8b-instant"
}
