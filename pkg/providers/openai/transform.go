package openai

import (
	"fmt"

	"hungrycoders/chatrelay/pkg/providers"
)

// Wire types for the OpenAI chat completions API.

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	N           int           `json:"n,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireStreamResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []wireStreamChoice `json:"choices"`
	Usage   *wireUsage         `json:"usage,omitempty"`
}

type wireStreamChoice struct {
	Index        int             `json:"index"`
	Delta        wireStreamDelta `json:"delta"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

type wireStreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// transformRequest converts an agnostic request to the OpenAI wire format,
// filling defaults from the provider config.
func transformRequest(cfg providers.Config, req *providers.CompletionRequest) *wireRequest {
	wireReq := &wireRequest{
		Model:       req.Model,
		Messages:    make([]wireMessage, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
		N:           1,
	}

	if wireReq.Model == "" {
		wireReq.Model = cfg.Model
	}
	if wireReq.Temperature == 0 {
		wireReq.Temperature = cfg.Temperature
	}
	if wireReq.MaxTokens == 0 {
		wireReq.MaxTokens = cfg.MaxTokens
	}

	for i, msg := range req.Messages {
		wireReq.Messages[i] = wireMessage{Role: msg.Role, Content: msg.Content}
	}

	return wireReq
}

// transformResponse normalizes an OpenAI response. The API contract
// guarantees at least one choice on success.
func transformResponse(resp *wireResponse) (*providers.CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response contains no choices")
	}

	choice := resp.Choices[0]
	return &providers.CompletionResponse{
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// transformStreamChunk normalizes one SSE chunk. Chunks without choices
// (usage-only trailers) carry only usage data.
func transformStreamChunk(chunk *wireStreamResponse) *providers.StreamChunk {
	out := &providers.StreamChunk{}

	if len(chunk.Choices) > 0 {
		out.Delta = chunk.Choices[0].Delta.Content
		out.FinishReason = chunk.Choices[0].FinishReason
	}
	if chunk.Usage != nil {
		out.Usage = &providers.TokenUsage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}
	return out
}
