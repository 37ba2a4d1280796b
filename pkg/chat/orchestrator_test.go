package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hungrycoders/chatrelay/internal/chattest"
	"hungrycoders/chatrelay/pkg/conversation"
	"hungrycoders/chatrelay/pkg/providers"
	"hungrycoders/chatrelay/pkg/router"
	"hungrycoders/chatrelay/pkg/telemetry/metrics"
	"hungrycoders/chatrelay/pkg/tokenizer"
	"hungrycoders/chatrelay/pkg/usage"
)

type fixture struct {
	store   *conversation.Store
	mock    *chattest.MockProvider
	usage   *usage.MemoryStorage
	orch    *Orchestrator
}

func newFixture(t *testing.T, mock *chattest.MockProvider) *fixture {
	t.Helper()

	store := conversation.NewStore(tokenizer.NewHeuristicEstimator())
	rt, err := router.New(map[string]providers.Provider{mock.Name(): mock}, mock.Name())
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	usageStore := usage.NewMemoryStorage()
	orch := New(store, rt, metrics.New(), usageStore, Config{})

	return &fixture{store: store, mock: mock, usage: usageStore, orch: orch}
}

type recordingSink struct {
	started bool
	convID  int64
	deltas  []string
	onSend  func()
}

func (s *recordingSink) Start(id int64) error {
	s.started = true
	s.convID = id
	return nil
}

func (s *recordingSink) Send(delta string) error {
	s.deltas = append(s.deltas, delta)
	if s.onSend != nil {
		s.onSend()
	}
	return nil
}

func TestComplete_NewConversation(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "hello from the model")
	mock.Usage = providers.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	f := newFixture(t, mock)

	resp, err := f.orch.Complete(context.Background(), Request{Text: "hi there"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.ConversationID != 1 {
		t.Errorf("ConversationID = %d, want 1", resp.ConversationID)
	}
	if resp.Content != "hello from the model" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Usage.TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}

	history := f.store.Get(1)
	if history == nil {
		t.Fatal("conversation 1 not created")
	}
	if got := history.MessageCount(); got != 2 {
		t.Errorf("MessageCount = %d, want 2 (user + assistant)", got)
	}
	if got := history.TotalResponseTokens(); got != 15 {
		t.Errorf("TotalResponseTokens = %d, want 15", got)
	}

	records, _ := f.usage.List(context.Background(), usage.Query{})
	if len(records) != 1 {
		t.Fatalf("got %d usage records, want 1", len(records))
	}
	if records[0].Status != "ok" || records[0].TotalTokens != 15 || records[0].Streamed {
		t.Errorf("unexpected usage record: %+v", records[0])
	}
}

func TestComplete_ContinuesConversation(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "reply")
	f := newFixture(t, mock)

	first, err := f.orch.Complete(context.Background(), Request{Text: "first question"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	_, err = f.orch.Complete(context.Background(), Request{
		ConversationID: &first.ConversationID,
		Text:           "second question",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// The second call sees the whole window: first turn plus the new message.
	last := mock.LastRequest()
	if last == nil {
		t.Fatal("no request recorded")
	}
	if len(last.Messages) != 3 {
		t.Fatalf("window has %d messages, want 3", len(last.Messages))
	}
	if last.Messages[0].Content != "first question" ||
		last.Messages[1].Content != "reply" ||
		last.Messages[2].Content != "second question" {
		t.Errorf("unexpected window: %+v", last.Messages)
	}
	if last.Messages[0].Role != "user" || last.Messages[1].Role != "assistant" {
		t.Errorf("unexpected roles: %+v", last.Messages)
	}

	if f.store.Len() != 1 {
		t.Errorf("store has %d conversations, want 1", f.store.Len())
	}
}

func TestComplete_BlankInput(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "reply")
	f := newFixture(t, mock)

	for _, input := range []string{"", "   ", "\n\t ", "\x00\x01"} {
		_, err := f.orch.Complete(context.Background(), Request{Text: input})
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("input %q: err = %v, want ErrEmptyInput", input, err)
		}
	}

	if f.store.Len() != 0 {
		t.Errorf("blank input created %d conversations", f.store.Len())
	}
	if len(mock.Requests()) != 0 {
		t.Error("blank input reached the provider")
	}
}

func TestComplete_EmptyResponse(t *testing.T) {
	// Whitespace-only replies are empty replies.
	for _, reply := range []string{"", "   \n\t "} {
		mock := chattest.NewMockProvider("mock", reply)
		f := newFixture(t, mock)

		_, err := f.orch.Complete(context.Background(), Request{Text: "hello"})
		if !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("reply %q: err = %v, want ErrEmptyResponse", reply, err)
		}

		// The user message stays; no assistant message is appended.
		history := f.store.Get(1)
		if history == nil {
			t.Fatal("conversation not created")
		}
		if got := history.MessageCount(); got != 1 {
			t.Errorf("reply %q: MessageCount = %d, want 1", reply, got)
		}

		records, _ := f.usage.List(context.Background(), usage.Query{})
		if len(records) != 1 || records[0].Status != "empty_response" {
			t.Errorf("reply %q: unexpected usage records: %+v", reply, records)
		}
	}
}

func TestComplete_ProviderError(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "")
	mock.Err = errors.New("backend exploded")
	f := newFixture(t, mock)

	_, err := f.orch.Complete(context.Background(), Request{Text: "hello"})
	if err == nil || !strings.Contains(err.Error(), "backend exploded") {
		t.Fatalf("err = %v, want provider error", err)
	}

	if got := f.store.Get(1).MessageCount(); got != 1 {
		t.Errorf("MessageCount = %d, want 1 (user only)", got)
	}

	records, _ := f.usage.List(context.Background(), usage.Query{})
	if len(records) != 1 || records[0].Status != "error" {
		t.Errorf("unexpected usage records: %+v", records)
	}
}

func TestComplete_UnknownProviderFallsBack(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "reply")
	f := newFixture(t, mock)

	resp, err := f.orch.Complete(context.Background(), Request{
		Provider: "does-not-exist",
		Text:     "hello",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "reply" {
		t.Errorf("Content = %q", resp.Content)
	}
	if len(mock.Requests()) != 1 {
		t.Error("default provider was not used")
	}
}

func TestStream_Completed(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "")
	mock.Chunks = []*providers.StreamChunk{
		{Delta: "Hello"},
		{Delta: ", "},
		{Delta: "world"},
		{FinishReason: "stop", Usage: &providers.TokenUsage{TotalTokens: 9}},
	}
	f := newFixture(t, mock)

	sink := &recordingSink{}
	if err := f.orch.Stream(context.Background(), Request{Text: "greet me"}, sink); err != nil {
		t.Fatalf("Stream: %v", err)
	}

	if !sink.started || sink.convID != 1 {
		t.Errorf("sink not started with conversation 1: %+v", sink)
	}
	if got := strings.Join(sink.deltas, ""); got != "Hello, world" {
		t.Errorf("streamed text = %q", got)
	}

	history := f.store.Get(1)
	if got := history.MessageCount(); got != 2 {
		t.Fatalf("MessageCount = %d, want 2", got)
	}
	all := history.AllMessages()
	if all[1].Message.Content != "Hello, world" {
		t.Errorf("assistant message = %q, want accumulated text", all[1].Message.Content)
	}
	if got := history.TotalResponseTokens(); got != 9 {
		t.Errorf("TotalResponseTokens = %d, want 9", got)
	}

	records, _ := f.usage.List(context.Background(), usage.Query{})
	if len(records) != 1 || records[0].Status != "ok" || !records[0].Streamed {
		t.Errorf("unexpected usage records: %+v", records)
	}
}

func TestStream_MidStreamError(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "")
	mock.Chunks = []*providers.StreamChunk{
		{Delta: "partial"},
		{Err: errors.New("upstream reset")},
	}
	f := newFixture(t, mock)

	sink := &recordingSink{}
	err := f.orch.Stream(context.Background(), Request{Text: "hello"}, sink)
	if err == nil || !strings.Contains(err.Error(), "upstream reset") {
		t.Fatalf("err = %v, want stream error", err)
	}

	last := sink.deltas[len(sink.deltas)-1]
	if last != "Error: AI processing failed" {
		t.Errorf("last delta = %q, want in-band error chunk", last)
	}

	// Partial text is not committed to history.
	if got := f.store.Get(1).MessageCount(); got != 1 {
		t.Errorf("MessageCount = %d, want 1 (user only)", got)
	}
}

func TestStream_Cancelled(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "")
	mock.Chunks = []*providers.StreamChunk{
		{Delta: "first"},
		{Delta: "second"},
		{Delta: "third"},
	}
	f := newFixture(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{onSend: cancel}

	err := f.orch.Stream(ctx, Request{Text: "hello"}, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	// Partial text is discarded.
	if got := f.store.Get(1).MessageCount(); got != 1 {
		t.Errorf("MessageCount = %d, want 1 (user only)", got)
	}

	records, _ := f.usage.List(context.Background(), usage.Query{})
	if len(records) != 1 || records[0].Status != "cancelled" {
		t.Errorf("unexpected usage records: %+v", records)
	}
}

func TestStream_EmptyStream(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "")
	f := newFixture(t, mock)

	sink := &recordingSink{}
	err := f.orch.Stream(context.Background(), Request{Text: "hello"}, sink)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
	if got := f.store.Get(1).MessageCount(); got != 1 {
		t.Errorf("MessageCount = %d, want 1", got)
	}
}

func TestStream_BlankAccumulatedText(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "")
	mock.Chunks = []*providers.StreamChunk{
		{Delta: "  "},
		{Delta: "\n\t "},
		{FinishReason: "stop"},
	}
	f := newFixture(t, mock)

	sink := &recordingSink{}
	err := f.orch.Stream(context.Background(), Request{Text: "hello"}, sink)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}

	// The whitespace deltas must not become an assistant turn.
	if got := f.store.Get(1).MessageCount(); got != 1 {
		t.Errorf("MessageCount = %d, want 1 (user only)", got)
	}

	records, _ := f.usage.List(context.Background(), usage.Query{})
	if len(records) != 1 || records[0].Status != "empty_response" {
		t.Errorf("unexpected usage records: %+v", records)
	}
}

func TestStream_BlankInput(t *testing.T) {
	mock := chattest.NewMockProvider("mock", "")
	f := newFixture(t, mock)

	sink := &recordingSink{}
	if err := f.orch.Stream(context.Background(), Request{Text: "  "}, sink); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if sink.started {
		t.Error("sink started for blank input")
	}
}
