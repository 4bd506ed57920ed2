package engine

import "context"

type Message struct {
	Role    string
	Content string
}

type JSONSchema struct {
	Name   string
	Schema map[string]any
}

type GenerateOptions struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
	JSONSchema  *JSONSchema
}

// Engine is a generative/embedding backend addressed by upstream model name.
type Engine interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
	GenerateText(ctx context.Context, model string, messages []Message, opts GenerateOptions) (string, error)
}

// LastUserMessage returns the content of the last message with role "user".
func LastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
