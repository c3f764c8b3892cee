// Package model provides the language-model collaborator. The task
// engine treats it as an opaque request/response completion capability.
package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fyrsmithlabs/devbot/internal/config"
	"github.com/fyrsmithlabs/devbot/internal/protocol"
)

// Anthropic completes transcripts through the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates an Anthropic completion client. Extra request
// options are appended after the API key, mainly for tests.
func NewAnthropic(cfg config.ModelConfig, opts ...option.RequestOption) (*Anthropic, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	clientOpts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey.Value())}, opts...)

	return &Anthropic{
		client:    anthropic.NewClient(clientOpts...),
		model:     cfg.Name,
		maxTokens: int64(cfg.MaxTokens),
	}, nil
}

// Complete requests one completion for the full transcript and returns
// the reply text.
func (a *Anthropic) Complete(ctx context.Context, system string, transcript []protocol.Message) (string, error) {
	if len(transcript) == 0 {
		return "", fmt.Errorf("transcript must not be empty")
	}

	messages := make([]anthropic.MessageParam, len(transcript))
	for i, msg := range transcript {
		switch msg.Role {
		case protocol.RoleAssistant:
			messages[i] = anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content))
		default:
			messages[i] = anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content))
		}
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("requesting completion: %w", err)
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	return reply.String(), nil
}
