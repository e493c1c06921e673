package provider

import (
	"context"
	"fmt"
	"os"
)

// New builds the Provider backend named by providerName ("anthropic",
// "bedrock", or "local"). Per SPEC_FULL.md §12, "local" routes through
// Bedrock standing in for the never-ported local/Ollama client, since no
// in-pack library offers a local-inference client.
func New(ctx context.Context, providerName string) (Provider, error) {
	switch providerName {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		return NewAnthropicProvider(apiKey), nil
	case "bedrock", "local":
		return NewBedrockProvider(ctx)
	default:
		return nil, fmt.Errorf("provider: unknown provider %q", providerName)
	}
}
