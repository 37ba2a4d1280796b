// Package chat orchestrates a single conversational turn: sanitize the
// input, window the conversation history into the token budget, call the
// resolved provider, and fold the reply back into memory.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hungrycoders/chatrelay/pkg/conversation"
	"hungrycoders/chatrelay/pkg/providers"
	"hungrycoders/chatrelay/pkg/router"
	"hungrycoders/chatrelay/pkg/sanitize"
	"hungrycoders/chatrelay/pkg/telemetry/metrics"
	"hungrycoders/chatrelay/pkg/usage"
)

// DefaultHistoryBudget is the token budget for the history window when none
// is configured.
const DefaultHistoryBudget = 4000

// StreamErrorMessage is the in-band chunk delivered to streaming clients
// when the provider fails mid-stream.
const StreamErrorMessage = "Error: AI processing failed"

var (
	// ErrEmptyInput means the message was blank after sanitization. No
	// conversation state is touched.
	ErrEmptyInput = errors.New("message cannot be empty")

	// ErrEmptyResponse means the provider returned no content. The user
	// message stays in history; no assistant message is appended.
	ErrEmptyResponse = errors.New("AI returned empty response")
)

// Request is one inbound chat turn.
type Request struct {
	// ConversationID continues an existing conversation. Nil starts a new
	// one with a generated ID.
	ConversationID *int64

	// Provider selects the backend by name. Blank or unknown names resolve
	// to the default provider.
	Provider string

	// Text is the raw user message.
	Text string

	// RequestID correlates usage records and logs. Optional.
	RequestID string
}

// Response is the outcome of a completed synchronous turn.
type Response struct {
	ConversationID int64               `json:"conversation_id"`
	Content        string              `json:"content"`
	Usage          providers.TokenUsage `json:"usage"`
}

// Sink receives streaming output. Start is called exactly once, before any
// delta, with the resolved conversation ID; Send is called once per text
// fragment. A Sink error aborts delivery.
type Sink interface {
	Start(conversationID int64) error
	Send(delta string) error
}

// Config tunes the orchestrator.
type Config struct {
	// HistoryBudget is the token budget for the history window.
	// Defaults to DefaultHistoryBudget.
	HistoryBudget int

	// RequestTimeout bounds one synchronous provider call. Zero means the
	// provider's own timeout is the only bound.
	RequestTimeout time.Duration
}

// Orchestrator executes chat turns against conversation memory and routed
// providers.
//
// History locks are never held across provider calls: the user message is
// appended and the window snapshotted before the call, and the assistant
// message appended after it returns.
type Orchestrator struct {
	store   *conversation.Store
	router  *router.Router
	metrics *metrics.Metrics
	usage   usage.Storage
	budget  int
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an orchestrator. metrics and usageStore are optional; nil
// disables the corresponding recording.
func New(store *conversation.Store, rt *router.Router, m *metrics.Metrics, usageStore usage.Storage, cfg Config) *Orchestrator {
	budget := cfg.HistoryBudget
	if budget <= 0 {
		budget = DefaultHistoryBudget
	}

	return &Orchestrator{
		store:   store,
		router:  rt,
		metrics: m,
		usage:   usageStore,
		budget:  budget,
		timeout: cfg.RequestTimeout,
		logger:  slog.Default().With("component", "chat.orchestrator"),
	}
}

// Complete runs one synchronous turn and returns the assistant reply.
func (o *Orchestrator) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	text := sanitize.Clean(req.Text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	history, provider := o.prepare(req)
	history.AddMessage(conversation.RoleUser, text)
	window := history.RecentMessages(o.budget)

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := provider.SendCompletion(callCtx, &providers.CompletionRequest{
		Messages: toProviderMessages(window),
	})
	if err != nil {
		o.finish(ctx, req, history, provider, "sync", "error", "", nil, start, false)
		o.logger.Error("provider call failed",
			"provider", provider.Name(),
			"conversation_id", history.ID(),
			"error", err,
		)
		return nil, err
	}

	// Whitespace-only replies count as empty; a blank assistant turn must
	// never enter history.
	if strings.TrimSpace(resp.Content) == "" {
		o.finish(ctx, req, history, provider, "sync", "empty_response", resp.Model, &resp.Usage, start, false)
		return nil, ErrEmptyResponse
	}

	history.AddMessage(conversation.RoleAssistant, resp.Content)
	history.AddResponseTokens(resp.Usage.TotalTokens)

	o.finish(ctx, req, history, provider, "sync", "ok", resp.Model, &resp.Usage, start, false)

	return &Response{
		ConversationID: history.ID(),
		Content:        resp.Content,
		Usage:          resp.Usage,
	}, nil
}

// streamState tracks where a streaming turn is in its lifecycle.
type streamState int

const (
	stateAccumulating streamState = iota
	stateCompleted
	stateCancelled
	stateErrored
)

// Stream runs one streaming turn, delivering deltas to sink as they arrive.
//
// On clean completion the accumulated assistant text is appended to history.
// On cancellation (ctx done, typically a client disconnect) the partial text
// is discarded; a truncated reply is not a faithful assistant turn. On a
// provider failure one in-band error chunk is sent to the sink and nothing
// is appended.
func (o *Orchestrator) Stream(ctx context.Context, req Request, sink Sink) error {
	start := time.Now()

	text := sanitize.Clean(req.Text)
	if text == "" {
		return ErrEmptyInput
	}

	history, provider := o.prepare(req)
	history.AddMessage(conversation.RoleUser, text)
	window := history.RecentMessages(o.budget)

	if err := sink.Start(history.ID()); err != nil {
		return err
	}

	chunks, err := provider.StreamCompletion(ctx, &providers.CompletionRequest{
		Messages: toProviderMessages(window),
		Stream:   true,
	})
	if err != nil {
		o.finish(ctx, req, history, provider, "stream", "error", "", nil, start, true)
		if sendErr := sink.Send(StreamErrorMessage); sendErr != nil {
			return sendErr
		}
		return err
	}

	var (
		accumulated []byte
		finalUsage  *providers.TokenUsage
		streamErr   error
	)
	state := stateAccumulating

	for state == stateAccumulating {
		select {
		case <-ctx.Done():
			state = stateCancelled
		case chunk, ok := <-chunks:
			// Cancellation wins over a simultaneously ready chunk.
			if ctx.Err() != nil {
				state = stateCancelled
				break
			}
			if !ok {
				state = stateCompleted
				break
			}
			if chunk.Err != nil {
				streamErr = chunk.Err
				state = stateErrored
				break
			}
			if chunk.Usage != nil {
				finalUsage = chunk.Usage
			}
			if chunk.Delta == "" {
				continue
			}
			accumulated = append(accumulated, chunk.Delta...)
			if o.metrics != nil {
				o.metrics.RecordStreamChunk(provider.Name())
			}
			if err := sink.Send(chunk.Delta); err != nil {
				state = stateCancelled
			}
		}
	}

	switch state {
	case stateCompleted:
		if strings.TrimSpace(string(accumulated)) == "" {
			o.finish(ctx, req, history, provider, "stream", "empty_response", "", finalUsage, start, true)
			return ErrEmptyResponse
		}
		history.AddMessage(conversation.RoleAssistant, string(accumulated))
		if finalUsage != nil {
			history.AddResponseTokens(finalUsage.TotalTokens)
		}
		o.finish(ctx, req, history, provider, "stream", "ok", "", finalUsage, start, true)
		return nil

	case stateCancelled:
		// Drain so the adapter goroutine can exit.
		go func() {
			for range chunks {
			}
		}()
		o.finish(ctx, req, history, provider, "stream", "cancelled", "", finalUsage, start, true)
		return ctx.Err()

	default: // stateErrored
		o.finish(ctx, req, history, provider, "stream", "error", "", finalUsage, start, true)
		o.logger.Error("stream failed",
			"provider", provider.Name(),
			"conversation_id", history.ID(),
			"error", streamErr,
		)
		if err := sink.Send(StreamErrorMessage); err != nil {
			return err
		}
		return streamErr
	}
}

// prepare resolves the conversation history and target provider for req.
func (o *Orchestrator) prepare(req Request) (*conversation.History, providers.Provider) {
	var id int64
	if req.ConversationID != nil {
		id = *req.ConversationID
	} else {
		id = o.store.GenerateID()
	}

	history := o.store.GetOrCreate(id)
	provider := o.router.Resolve(req.Provider)

	if o.metrics != nil {
		o.metrics.SetActiveConversations(o.store.Len())
	}
	return history, provider
}

// finish records metrics and the usage audit entry for a turn.
func (o *Orchestrator) finish(ctx context.Context, req Request, history *conversation.History, provider providers.Provider, mode, status, model string, tokens *providers.TokenUsage, start time.Time, streamed bool) {
	elapsed := time.Since(start)

	if o.metrics != nil {
		o.metrics.RecordRequest(provider.Name(), mode, status, elapsed)
		if tokens != nil {
			o.metrics.RecordTokens(provider.Name(), tokens.PromptTokens, tokens.CompletionTokens)
		}
	}

	if o.usage == nil {
		return
	}

	rec := usage.NewRecord()
	rec.RequestID = req.RequestID
	rec.ConversationID = history.ID()
	rec.Provider = provider.Name()
	rec.Model = model
	rec.LatencyMS = elapsed.Milliseconds()
	rec.Status = status
	rec.Streamed = streamed
	if tokens != nil {
		rec.PromptTokens = tokens.PromptTokens
		rec.CompletionTokens = tokens.CompletionTokens
		rec.TotalTokens = tokens.TotalTokens
	}

	// The audit write must survive request cancellation.
	if err := o.usage.Insert(context.WithoutCancel(ctx), rec); err != nil {
		o.logger.Warn("failed to record usage", "error", err)
	}
}

func toProviderMessages(window []conversation.Message) []providers.Message {
	out := make([]providers.Message, len(window))
	for i, msg := range window {
		out[i] = providers.Message{Role: string(msg.Role), Content: msg.Content}
	}
	return out
}
