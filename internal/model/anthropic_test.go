package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/devbot/internal/config"
	"github.com/fyrsmithlabs/devbot/internal/protocol"
)

func TestNewAnthropic_RequiresAPIKey(t *testing.T) {
	_, err := NewAnthropic(config.ModelConfig{Name: "claude-3-5-sonnet-20240620", MaxTokens: 4096})
	require.Error(t, err)
}

func TestComplete(t *testing.T) {
	var gotReq struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       gotReq.Model,
			"stop_reason": "end_turn",
			"content": []map[string]string{
				{"type": "text", "text": "LIST_FILES ."},
			},
			"usage": map[string]int{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	client, err := NewAnthropic(config.ModelConfig{
		Name:      "claude-3-5-sonnet-20240620",
		MaxTokens: 4096,
		APIKey:    config.Secret("sk-test"),
	}, option.WithBaseURL(srv.URL))
	require.NoError(t, err)

	transcript := []protocol.Message{
		protocol.UserMessage("Here is the plan"),
		protocol.AssistantMessage("READ_FILE go.mod"),
		protocol.UserMessage("Tool Output:\nmodule example"),
	}

	reply, err := client.Complete(context.Background(), "You are an autonomous engineer.", transcript)
	require.NoError(t, err)

	assert.Equal(t, "LIST_FILES .", reply)
	assert.Equal(t, "claude-3-5-sonnet-20240620", gotReq.Model)
	assert.Equal(t, 4096, gotReq.MaxTokens)
	require.Len(t, gotReq.System, 1)
	assert.Equal(t, "You are an autonomous engineer.", gotReq.System[0].Text)
	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "assistant", gotReq.Messages[1].Role)
}

func TestComplete_EmptyTranscript(t *testing.T) {
	client, err := NewAnthropic(config.ModelConfig{
		Name:      "claude-3-5-sonnet-20240620",
		MaxTokens: 4096,
		APIKey:    config.Secret("sk-test"),
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "system", nil)
	require.Error(t, err)
}
