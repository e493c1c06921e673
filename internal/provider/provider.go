// Package provider implements spec §4.5's AI Provider Abstraction: a
// uniform generate/generateStream/health contract over concrete backends
// (Anthropic's Messages API directly, and Amazon Bedrock for the
// fallback/local-preference paths), plus the prompt/JSON utilities every
// implementation shares.
package provider

import (
	"context"
	"time"
)

// FinishReason is the closed set of ways a generation call can end.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
	FinishError  FinishReason = "error"
)

// Options configures a single generate/generateStream call.
type Options struct {
	Model         string
	Temperature   float64 // [0, 2]
	MaxTokens     int     // > 0
	StopSequences []string
	SystemPrompt  string
	TimeoutMs     int
}

// GenerateResult is the outcome of a single (non-streaming) generation.
type GenerateResult struct {
	Content      string
	Model        string
	TokensIn     int
	TokensOut    int
	FinishReason FinishReason
	DurationMs   int64
}

// StreamChunk is one piece of a streamed generation.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// ModelInfo describes a model a provider can serve.
type ModelInfo struct {
	ID          string
	Provider    string
	MaxTokens   int
	InputPrice  float64 // USD per 1K input tokens
	OutputPrice float64 // USD per 1K output tokens
}

// HealthStatus is the result of a healthCheck call.
type HealthStatus struct {
	Healthy   bool
	LatencyMs int64
	Error     string
}

// Provider is the AI backend contract every agent generates through.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts Options) (GenerateResult, error)
	GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan StreamChunk, error)
	ListModels() []ModelInfo
	HealthCheck(ctx context.Context) HealthStatus
	EstimateCost(tokensIn, tokensOut int, model string) float64
}

// elapsedMs is a small helper shared by every concrete provider to report
// DurationMs/LatencyMs consistently.
func elapsedMs(since time.Time) int64 {
	return time.Since(since).Milliseconds()
}
