package providers

import "time"

// Message is a provider-agnostic conversation message. Adapters transform
// it to their wire format.
type Message struct {
	// Role identifies the sender (user, assistant).
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// TokenUsage reports token consumption for a completed request, as counted
// by the provider itself.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is a provider-agnostic chat completion request.
type CompletionRequest struct {
	// Model is the model identifier. Empty means the adapter's configured
	// default model.
	Model string `json:"model"`

	// Messages is the windowed conversation history, oldest first.
	Messages []Message `json:"messages"`

	// Temperature controls randomness. Zero means provider default.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens caps the generated completion length. Zero means no cap.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Stream requests an incremental response.
	Stream bool `json:"stream,omitempty"`
}

// CompletionResponse is a normalized chat completion response.
type CompletionResponse struct {
	// Model is the model that produced the response.
	Model string `json:"model"`

	// Content is the generated text.
	Content string `json:"content"`

	// FinishReason indicates why generation stopped (stop, length, ...).
	FinishReason string `json:"finish_reason"`

	// Usage is the provider-reported token consumption. Zero-valued when
	// the provider did not report usage.
	Usage TokenUsage `json:"usage"`
}

// StreamChunk is one increment of a streaming completion.
type StreamChunk struct {
	// Delta is the text fragment added by this chunk.
	Delta string `json:"delta"`

	// FinishReason is set on the terminal chunk.
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is set when the provider reports usage, typically on the final
	// chunk. Nil otherwise.
	Usage *TokenUsage `json:"usage,omitempty"`

	// Err carries a mid-stream failure. When non-nil the chunk is the last
	// one delivered.
	Err error `json:"-"`
}

// Config holds the settings one adapter needs to reach its backend.
type Config struct {
	// Name is the routing key for this provider instance.
	Name string `yaml:"name"`

	// Type selects the adapter ("openai" for any OpenAI-compatible API,
	// "gemini" for Google Gemini).
	Type string `yaml:"type"`

	// BaseURL is the API root, e.g. "https://api.openai.com/v1" or
	// "http://localhost:11434/v1".
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests. Optional for local backends.
	APIKey string `yaml:"api_key"`

	// Model is the default model when a request does not name one.
	Model string `yaml:"model"`

	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens is the default completion cap. Zero means none.
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retry attempts for transient failures.
	MaxRetries int `yaml:"max_retries"`

	// MaxIdleConns and MaxIdleConnsPerHost tune the connection pool.
	MaxIdleConns        int `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`
}
