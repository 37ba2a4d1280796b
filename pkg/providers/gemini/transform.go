package gemini

import (
	"fmt"
	"strings"

	"hungrycoders/chatrelay/pkg/providers"
)

// Wire types for the Gemini generateContent API.

type wireRequest struct {
	Contents         []wireContent         `json:"contents"`
	GenerationConfig *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text string `json:"text"`
}

type wireGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type wireResponse struct {
	Candidates    []wireCandidate    `json:"candidates"`
	UsageMetadata *wireUsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string             `json:"modelVersion,omitempty"`
}

type wireCandidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason,omitempty"`
}

type wireUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// transformRequest converts an agnostic request to Gemini wire format.
// Gemini names the assistant role "model".
func transformRequest(cfg providers.Config, req *providers.CompletionRequest) *wireRequest {
	wireReq := &wireRequest{
		Contents: make([]wireContent, len(req.Messages)),
	}

	for i, msg := range req.Messages {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		wireReq.Contents[i] = wireContent{
			Role:  role,
			Parts: []wirePart{{Text: msg.Content}},
		}
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.MaxTokens
	}
	if temperature != 0 || maxTokens != 0 {
		wireReq.GenerationConfig = &wireGenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		}
	}

	return wireReq
}

// transformResponse normalizes a Gemini response.
func transformResponse(requestModel, defaultModel string, resp *wireResponse) (*providers.CompletionResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("response contains no candidates")
	}

	model := requestModel
	if model == "" {
		model = defaultModel
	}

	out := &providers.CompletionResponse{
		Model:        model,
		Content:      candidateText(&resp.Candidates[0]),
		FinishReason: strings.ToLower(resp.Candidates[0].FinishReason),
	}
	if resp.UsageMetadata != nil {
		out.Usage = providers.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

// transformStreamChunk normalizes one SSE frame of a streaming generation.
func transformStreamChunk(chunk *wireResponse) *providers.StreamChunk {
	out := &providers.StreamChunk{}

	if len(chunk.Candidates) > 0 {
		out.Delta = candidateText(&chunk.Candidates[0])
		out.FinishReason = strings.ToLower(chunk.Candidates[0].FinishReason)
	}
	if chunk.UsageMetadata != nil {
		out.Usage = &providers.TokenUsage{
			PromptTokens:     chunk.UsageMetadata.PromptTokenCount,
			CompletionTokens: chunk.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      chunk.UsageMetadata.TotalTokenCount,
		}
	}
	return out
}

// candidateText concatenates all text parts of a candidate.
func candidateText(c *wireCandidate) string {
	var sb strings.Builder
	for _, part := range c.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}
