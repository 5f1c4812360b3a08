// Package services holds the external collaborators the gate hands control
// to after authentication: chat generation, media forwarding, document
// analysis and chat-history access. The server treats them as opaque; it
// contributes the caller's identity and passes payloads through unchanged.
package services

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yuna-ai/yuna-server/pkg/config"
	"github.com/yuna-ai/yuna-server/pkg/errors"
)

// ChatService generates an assistant reply for an authenticated user
type ChatService interface {
	Generate(ctx context.Context, username, message string) (string, error)
}

// OpenAIChatService talks to an OpenAI-compatible completion endpoint (the
// local model server in the stock deployment)
type OpenAIChatService struct {
	client *openai.Client
	model  string
}

// NewOpenAIChatService creates a chat service against cfg's endpoint
func NewOpenAIChatService(cfg config.ChatConfig) *OpenAIChatService {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = cfg.APIBase
	}

	return &OpenAIChatService{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Generate produces a single assistant reply to message
func (s *OpenAIChatService) Generate(ctx context.Context, username, message string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		User:  username,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return "", errors.NewServiceUnavailableError("chat", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.NewServiceUnavailableError("chat", fmt.Errorf("empty completion response"))
	}
	return resp.Choices[0].Message.Content, nil
}
