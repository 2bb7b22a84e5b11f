package generation

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"trendbot/config"
)

// Service turns a prompt into text. Implementations may fail; callers treat
// an empty response as a failure.
type Service interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Service.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

// ErrNoAPIKey is returned when no Cohere key is configured.
var ErrNoAPIKey = errors.New("COHERE_API_KEY is not set")

// Cohere implements Service using the Cohere chat endpoint.
type Cohere struct {
	client      *cohereclient.Client
	model       string
	maxTokens   int
	temperature float64
}

// Option customizes the Cohere client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client at another API host.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// NewCohere builds a client from configuration.
func NewCohere(cfg config.GenerationConfig, opts ...Option) (*Cohere, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultGenerateModel
	}

	o := options{
		// Force HTTP/1.1 to avoid HTTP/2 protocol errors
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
				ForceAttemptHTTP2: false,
			},
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	var client *cohereclient.Client
	if o.baseURL != "" {
		client = cohereclient.NewClient(
			cohereclient.WithToken(cfg.APIKey),
			cohereclient.WithHTTPClient(o.httpClient),
			cohereclient.WithBaseURL(o.baseURL),
		)
	} else {
		client = cohereclient.NewClient(
			cohereclient.WithToken(cfg.APIKey),
			cohereclient.WithHTTPClient(o.httpClient),
		)
	}

	return &Cohere{client: client, model: model, maxTokens: cfg.MaxTokens, temperature: cfg.Temp}, nil
}

// Generate sends prompt as a single chat message and returns the reply text.
func (c *Cohere) Generate(ctx context.Context, prompt string) (string, error) {
	req := &cohere.ChatRequest{
		Message: prompt,
		Model:   cohere.String(c.model),
	}
	if c.maxTokens > 0 {
		req.MaxTokens = cohere.Int(c.maxTokens)
	}
	if c.temperature > 0 {
		req.Temperature = cohere.Float64(c.temperature)
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("cohere chat returned empty response")
	}
	return resp.Text, nil
}

// Model returns the configured model name.
func (c *Cohere) Model() string { return c.model }
