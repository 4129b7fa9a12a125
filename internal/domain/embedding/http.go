package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default HTTP provider configuration.
const (
	defaultEndpoint = "http://localhost:11434"
	defaultModel    = "mxbai-embed-large"
	defaultHTTPDim  = 1024
	defaultTimeout  = 10 * time.Second
	defaultMinChars = 120
)

// HTTPProvider calls an Ollama-compatible embedding endpoint. Every request
// is bounded by the configured timeout so a slow model can never stall a
// batch; callers treat a deadline error as a deferral, not a failure.
type HTTPProvider struct {
	endpoint string
	model    string
	dim      int
	minChars int
	timeout  time.Duration
	client   *http.Client
}

// HTTPOption applies a configuration option to the HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithEndpoint sets the base URL of the embedding server.
func WithEndpoint(endpoint string) HTTPOption {
	return func(p *HTTPProvider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

// WithModel sets the model name sent with each request.
func WithModel(model string) HTTPOption {
	return func(p *HTTPProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithDim declares the model's output dimension.
func WithDim(dim int) HTTPOption {
	return func(p *HTTPProvider) {
		if dim > 0 {
			p.dim = dim
		}
	}
}

// WithTimeout bounds each embedding call.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithMinChars sets the minimum text length accepted for embedding.
func WithMinChars(n int) HTTPOption {
	return func(p *HTTPProvider) {
		if n > 0 {
			p.minChars = n
		}
	}
}

// NewHTTPProvider creates an HTTP-backed embedding provider.
func NewHTTPProvider(opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		endpoint: defaultEndpoint,
		model:    defaultModel,
		dim:      defaultHTTPDim,
		minChars: defaultMinChars,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = &http.Client{Timeout: p.timeout}
	return p
}

func (p *HTTPProvider) Dim() int     { return p.dim }
func (p *HTTPProvider) Name() string { return p.model }

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed requests a vector for the given text.
func (p *HTTPProvider) Embed(ctx context.Context, text string) (Vector, error) {
	if len(text) < p.minChars {
		return nil, fmt.Errorf("%w: %d chars below minimum %d", ErrUnembeddable, len(text), p.minChars)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: p.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, msg)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) != p.dim {
		return nil, fmt.Errorf("%w: bad embedding shape", ErrProvider)
	}
	return Vector(out.Embeddings[0]), nil
}
