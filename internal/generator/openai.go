package generator

import (
	"context" // Cancellation for the provider call
	"errors"  // Error values
	"fmt"     // Prompt formatting
	"strings" // Answer trimming

	openai "github.com/sashabaranov/go-openai" // OpenAI-compatible chat client
)

// systemPrompt frames the assistant as a fortune teller
const systemPrompt = "You are a warm, theatrical fortune teller. " +
	"Answer the question about the named person in 3 to 5 sentences, " +
	"mystical in tone but kind, never giving medical, legal or financial advice."

// OpenAIProvider generates fortunes through any OpenAI-compatible
// chat-completions endpoint. Both the primary and the fallback vendor speak
// this wire format, so provider choice is just a key and a base URL.
type OpenAIProvider struct {
	client *openai.Client // Chat completions client
	model  string         // Model name to request
}

// NewOpenAI creates a provider for the given credential. An empty baseURL
// targets api.openai.com; a vendor-specific URL selects a compatible vendor.
func NewOpenAI(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey) // Default client configuration
	if baseURL != "" {
		cfg.BaseURL = baseURL // Point at the compatible vendor
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate performs one synchronous chat completion
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model, // Configured model
		Temperature: 0.9,     // Fortunes should vary
		MaxTokens:   400,     // Bound the answer length
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
	})
	if err != nil {
		return "", err // Network, quota or model error
	}
	// Guard against an empty completion
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("blank completion")
	}
	return answer, nil
}

// buildPrompt renders the user message for one request
func buildPrompt(req Request) string {
	return fmt.Sprintf("Category: %s\nPerson: %s\nQuestion: %s", req.Category, req.PersonName, req.Question)
}
