package provider

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/devswarm/devswarm/internal/cost"
)

// AnthropicProvider talks to Anthropic's Messages API directly. It is the
// PrimaryModel backend for QUALITY and (by default) SPEED/AUTONOMY mode
// baselines.
type AnthropicProvider struct {
	client anthropic.Client
	models []ModelInfo
}

// NewAnthropicProvider builds a provider bound to apiKey, grounded on the
// teacher pack's anthropic-sdk-go client construction idiom
// (option.WithAPIKey).
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		models: []ModelInfo{
			{ID: "claude-opus-4-20250514", Provider: "anthropic", MaxTokens: 32000,
				InputPrice:  cost.PriceFor("claude-opus-4-20250514").InputPer1K,
				OutputPrice: cost.PriceFor("claude-opus-4-20250514").OutputPer1K},
			{ID: "claude-sonnet-4-20250514", Provider: "anthropic", MaxTokens: 64000,
				InputPrice:  cost.PriceFor("claude-sonnet-4-20250514").InputPer1K,
				OutputPrice: cost.PriceFor("claude-sonnet-4-20250514").OutputPer1K},
			{ID: "claude-haiku-4-20250514", Provider: "anthropic", MaxTokens: 8192,
				InputPrice:  cost.PriceFor("claude-haiku-4-20250514").InputPer1K,
				OutputPrice: cost.PriceFor("claude-haiku-4-20250514").OutputPer1K},
		},
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) ListModels() []ModelInfo { return p.models }

func (p *AnthropicProvider) EstimateCost(tokensIn, tokensOut int, model string) float64 {
	return cost.EstimateByModel(tokensIn, tokensOut, model)
}

func (p *AnthropicProvider) buildParams(prompt string, opts Options) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(opts.Model),
		MaxTokens:   int64(opts.MaxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(opts.Temperature),
	}
	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.SystemPrompt}}
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}
	return params
}

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, opts Options) (GenerateResult, error) {
	start := time.Now()
	if opts.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	resp, err := p.client.Messages.New(ctx, p.buildParams(prompt, opts))
	if err != nil {
		return GenerateResult{Model: opts.Model, FinishReason: FinishError, DurationMs: elapsedMs(start)}, err
	}

	var content string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += variant.Text
		}
	}

	return GenerateResult{
		Content:      content,
		Model:        string(resp.Model),
		TokensIn:     int(resp.Usage.InputTokens),
		TokensOut:    int(resp.Usage.OutputTokens),
		FinishReason: mapStopReason(string(resp.StopReason)),
		DurationMs:   elapsedMs(start),
	}, nil
}

func (p *AnthropicProvider) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk)
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(prompt, opts))

	go func() {
		defer close(out)
		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" {
				continue
			}
			deltaEvent := event.AsContentBlockDelta()
			if deltaEvent.Delta.Type != "text_delta" {
				continue
			}
			textDelta := deltaEvent.Delta.AsTextDelta()
			out <- StreamChunk{Content: textDelta.Text}
		}
		if err := stream.Err(); err != nil {
			out <- StreamChunk{Err: err, Done: true}
			return
		}
		out <- StreamChunk{Done: true}
	}()

	return out, nil
}

func (p *AnthropicProvider) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model("claude-haiku-4-20250514"),
		MaxTokens: 1,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("ping"))},
	})
	if err != nil {
		return HealthStatus{Healthy: false, Error: err.Error(), LatencyMs: elapsedMs(start)}
	}
	return HealthStatus{Healthy: true, LatencyMs: elapsedMs(start)}
}

// mapStopReason translates the SDK's stop reason into spec §4.5's closed
// FinishReason set.
func mapStopReason(reason string) FinishReason {
	switch reason {
	case "max_tokens":
		return FinishLength
	case "end_turn", "stop_sequence", "tool_use":
		return FinishStop
	default:
		return FinishStop
	}
}
