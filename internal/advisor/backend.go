package advisor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Backend names.
const (
	BackendOllama = "ollama"
	BackendGemini = "gemini"
)

// Settings select and configure a backend.
type Settings struct {
	Backend  string
	Model    string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// NewBackend builds the backend named in s. client is used by HTTP backends
// and may be nil.
func NewBackend(ctx context.Context, s Settings, client *http.Client) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case "", BackendOllama:
		return NewOllamaBackend(s.Endpoint, s.Model, client), nil
	case BackendGemini:
		return NewGeminiBackend(ctx, s.APIKey, s.Model)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidRequest, s.Backend)
	}
}

// New builds a Generator from s.
func New(ctx context.Context, s Settings) (*Generator, error) {
	backend, err := NewBackend(ctx, s, nil)
	if err != nil {
		return nil, err
	}
	return NewGenerator(backend, WithTimeout(s.Timeout)), nil
}
