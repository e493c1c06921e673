package provider

import (
	"context"
	"encoding/json"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/devswarm/devswarm/internal/cost"
)

// bedrockAnthropicVersion is the wire-protocol version Bedrock's Anthropic
// runtime expects in every InvokeModel body.
const bedrockAnthropicVersion = "bedrock-2023-05-31"

// BedrockProvider serves models through Amazon Bedrock's runtime API. It
// backs AUTONOMY's FallbackModel, COST's models in the default baselines,
// and the "local" provider name (per
// SPEC_FULL.md §12, Bedrock stands in for the never-ported local/Ollama
// client). It calls bedrockruntime directly rather than the
// anthropic-sdk-go bedrock adapter subpackage, since only bedrockruntime
// is a direct module dependency.
type BedrockProvider struct {
	client *bedrockruntime.Client
	models []ModelInfo
}

// NewBedrockProvider loads the default AWS config chain (env vars, shared
// config, IAM role) and builds a bedrockruntime client from it.
func NewBedrockProvider(ctx context.Context) (*BedrockProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return &BedrockProvider{
		client: bedrockruntime.NewFromConfig(cfg),
		models: []ModelInfo{
			{ID: "us.anthropic.claude-3-sonnet-20240229-v1:0", Provider: "bedrock", MaxTokens: 4096,
				InputPrice:  cost.PriceFor("us.anthropic.claude-3-sonnet-20240229-v1:0").InputPer1K,
				OutputPrice: cost.PriceFor("us.anthropic.claude-3-sonnet-20240229-v1:0").OutputPer1K},
			{ID: "us.anthropic.claude-3-haiku-20240307-v1:0", Provider: "bedrock", MaxTokens: 4096,
				InputPrice:  cost.PriceFor("us.anthropic.claude-3-haiku-20240307-v1:0").InputPer1K,
				OutputPrice: cost.PriceFor("us.anthropic.claude-3-haiku-20240307-v1:0").OutputPer1K},
		},
	}, nil
}

func (p *BedrockProvider) Name() string { return "bedrock" }

func (p *BedrockProvider) ListModels() []ModelInfo { return p.models }

func (p *BedrockProvider) EstimateCost(tokensIn, tokensOut int, model string) float64 {
	return cost.EstimateByModel(tokensIn, tokensOut, model)
}

// bedrockRequest is the Anthropic-Messages-API-shaped body Bedrock's
// Anthropic runtime expects, marshaled by hand since this repo depends on
// bedrockruntime directly rather than an SDK convenience adapter.
type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
	StopSequences    []string         `json:"stop_sequences,omitempty"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *BedrockProvider) buildBody(prompt string, opts Options) ([]byte, error) {
	req := bedrockRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        opts.MaxTokens,
		System:           opts.SystemPrompt,
		Messages:         []bedrockMessage{{Role: "user", Content: prompt}},
		Temperature:      opts.Temperature,
		StopSequences:    opts.StopSequences,
	}
	return json.Marshal(req)
}

func (p *BedrockProvider) Generate(ctx context.Context, prompt string, opts Options) (GenerateResult, error) {
	start := time.Now()
	if opts.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	body, err := p.buildBody(prompt, opts)
	if err != nil {
		return GenerateResult{Model: opts.Model, FinishReason: FinishError, DurationMs: elapsedMs(start)}, err
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &opts.Model,
		ContentType: strPtr("application/json"),
		Accept:      strPtr("application/json"),
		Body:        body,
	})
	if err != nil {
		return GenerateResult{Model: opts.Model, FinishReason: FinishError, DurationMs: elapsedMs(start)}, err
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return GenerateResult{Model: opts.Model, FinishReason: FinishError, DurationMs: elapsedMs(start)}, err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return GenerateResult{
		Content:      content,
		Model:        opts.Model,
		TokensIn:     resp.Usage.InputTokens,
		TokensOut:    resp.Usage.OutputTokens,
		FinishReason: mapStopReason(resp.StopReason),
		DurationMs:   elapsedMs(start),
	}, nil
}

func (p *BedrockProvider) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan StreamChunk, error) {
	body, err := p.buildBody(prompt, opts)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     &opts.Model,
		ContentType: strPtr("application/json"),
		Accept:      strPtr("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		stream := resp.GetStream()
		defer stream.Close()

		for event := range stream.Events() {
			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}
			var delta struct {
				Type  string `json:"type"`
				Delta struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"delta"`
			}
			if err := json.Unmarshal(chunk.Value.Bytes, &delta); err != nil {
				continue
			}
			if delta.Type == "content_block_delta" {
				out <- StreamChunk{Content: delta.Delta.Text}
			}
		}
		if err := stream.Err(); err != nil {
			out <- StreamChunk{Err: err, Done: true}
			return
		}
		out <- StreamChunk{Done: true}
	}()

	return out, nil
}

func (p *BedrockProvider) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	_, err := p.Generate(ctx, "ping", Options{Model: "us.anthropic.claude-3-haiku-20240307-v1:0", MaxTokens: 1})
	if err != nil {
		return HealthStatus{Healthy: false, Error: err.Error(), LatencyMs: elapsedMs(start)}
	}
	return HealthStatus{Healthy: true, LatencyMs: elapsedMs(start)}
}

func strPtr(s string) *string { return &s }
