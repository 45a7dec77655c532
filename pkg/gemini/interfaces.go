package gemini

import (
	"context"

	"google.golang.org/genai"
)

// CacheInterface defines the cache operations needed by the Gemini client.
type CacheInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte)
}

// Logger defines the logging interface needed by the Gemini client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// generator is the subset of the genai Models service the client calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}
