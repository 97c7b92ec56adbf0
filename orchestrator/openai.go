package orchestrator

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/streamforge/copilot/config"
)

// openAIClient talks to any OpenAI-compatible chat completion endpoint. The
// "ollama" provider type is the same wire protocol on a local default URL;
// "custom" just requires an explicit base_url.
type openAIClient struct {
	client *openai.Client
}

// NewOpenAIClient builds the production Client for a provider.
func NewOpenAIClient(p *config.Provider) Client {
	cfg := openai.DefaultConfig(p.APIKey)
	switch {
	case p.BaseURL != "":
		cfg.BaseURL = strings.TrimSuffix(p.BaseURL, "/")
	case p.Type == "ollama":
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	return &openAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *openAIClient) Complete(ctx context.Context, model, systemPrompt, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
