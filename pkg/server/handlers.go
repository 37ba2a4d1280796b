package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hungrycoders/chatrelay/pkg/chat"
	"hungrycoders/chatrelay/pkg/prompt"
	"hungrycoders/chatrelay/pkg/providers"
	"hungrycoders/chatrelay/pkg/server/middleware"
	"hungrycoders/chatrelay/pkg/server/types"
)

// providerHeader selects the backend serving a request.
const providerHeader = "ai-provider"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// defaultBusinessRequirements stands in when a code review request omits
// them.
const defaultBusinessRequirements = "Follow standard industry best practices."

// handleChat serves POST /v1/chat: raw text in, plain-text reply out.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.chatRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.orchestrator.Complete(r.Context(), req)
	if err != nil {
		s.writeChatError(w, r, err)
		return
	}

	w.Header().Set("X-Conversation-Id", strconv.FormatInt(resp.ConversationID, 10))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(resp.Content))
}

// handleChatStream serves POST /v1/chat/stream as Server-Sent Events.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.chatRequest(w, r)
	if !ok {
		return
	}

	sink, err := newSSEWriter(w)
	if err != nil {
		types.WriteError(w, r, http.StatusInternalServerError,
			types.CodeInternalError, err.Error())
		return
	}

	err = s.orchestrator.Stream(r.Context(), req, sink)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrEmptyInput):
		// The sink never started; a normal error payload is still possible.
		types.WriteError(w, r, http.StatusBadRequest,
			types.CodeEmptyMessage, err.Error())
		return
	case errors.Is(err, chat.ErrEmptyResponse):
		_ = sink.Send(chat.StreamErrorMessage)
	case r.Context().Err() != nil:
		// Client is gone; nothing left to write.
		return
	}

	sink.Done()
}

// chatRequest builds the orchestrator request from the HTTP request.
// On failure it writes the error response and returns ok=false.
func (s *Server) chatRequest(w http.ResponseWriter, r *http.Request) (chat.Request, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		types.WriteError(w, r, http.StatusBadRequest,
			types.CodeInvalidRequest, "failed to read request body")
		return chat.Request{}, false
	}

	req := chat.Request{
		Provider:  r.Header.Get(providerHeader),
		Text:      string(body),
		RequestID: middleware.GetRequestID(r.Context()),
	}

	if raw := r.URL.Query().Get("conversationId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			types.WriteError(w, r, http.StatusBadRequest,
				types.CodeInvalidRequest, "conversationId must be a positive integer")
			return chat.Request{}, false
		}
		req.ConversationID = &id
	}

	return req, true
}

func (s *Server) writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		types.WriteError(w, r, http.StatusBadRequest,
			types.CodeEmptyMessage, err.Error())
	case errors.Is(err, chat.ErrEmptyResponse):
		types.WriteError(w, r, http.StatusBadGateway,
			types.CodeEmptyAIResponse, err.Error())
	default:
		types.WriteError(w, r, http.StatusBadGateway,
			types.CodeAIProcessing, "AI processing failed")
	}
}

// codeReviewRequest is the body for POST /v1/prompts/code-review.
type codeReviewRequest struct {
	Language             string `json:"language"`
	Code                 string `json:"code"`
	BusinessRequirements string `json:"businessRequirements"`
}

// handleCodeReview renders the code-review template and returns the model's
// review as plain text. Reviews are one-shot; they do not touch
// conversation memory.
func (s *Server) handleCodeReview(w http.ResponseWriter, r *http.Request) {
	var req codeReviewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		types.WriteError(w, r, http.StatusBadRequest,
			types.CodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Code == "" {
		types.WriteError(w, r, http.StatusBadRequest,
			types.CodeInvalidRequest, "code cannot be empty")
		return
	}
	if req.BusinessRequirements == "" {
		req.BusinessRequirements = defaultBusinessRequirements
	}

	rendered, err := s.renderer.Render(prompt.TemplateCodeReview, map[string]string{
		"language":             req.Language,
		"code":                 req.Code,
		"businessRequirements": req.BusinessRequirements,
	})
	if err != nil {
		types.WriteError(w, r, http.StatusInternalServerError,
			types.CodeInternalError, "failed to render prompt")
		return
	}

	content, ok := s.oneShot(w, r, r.Header.Get(providerHeader), rendered)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(content))
}

// ticketAnalysisResponse is the body for POST /v1/prompts/ticket-analysis
// responses.
type ticketAnalysisResponse struct {
	prompt.TicketAnalysis
	SuggestedResponses []prompt.BespokeResponse `json:"suggestedResponses,omitempty"`
}

// handleTicketAnalysis triages a support ticket. High and urgent tickets get
// a follow-up call generating suggested customer responses.
func (s *Server) handleTicketAnalysis(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		types.WriteError(w, r, http.StatusBadRequest,
			types.CodeInvalidRequest, "ticket text cannot be empty")
		return
	}

	rendered, err := s.renderer.Render(prompt.TemplateTicketAnalysis, map[string]string{
		"ticketText": string(body),
	})
	if err != nil {
		types.WriteError(w, r, http.StatusInternalServerError,
			types.CodeInternalError, "failed to render prompt")
		return
	}

	reply, ok := s.oneShot(w, r, r.Header.Get(providerHeader), rendered)
	if !ok {
		return
	}

	analysis, err := prompt.ParseTicketAnalysis(reply)
	if err != nil {
		slog.WarnContext(r.Context(), "unparseable ticket analysis", "error", err)
		types.WriteError(w, r, http.StatusBadGateway,
			types.CodeAIProcessing, "AI returned an unparseable analysis")
		return
	}

	resp := ticketAnalysisResponse{TicketAnalysis: *analysis}
	if analysis.NeedsBespokeResponse() {
		resp.SuggestedResponses = s.bespokeResponses(r, analysis)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// bespokeResponses runs the follow-up prompt for severe tickets. Failures
// degrade to an analysis without suggestions rather than failing the
// request.
func (s *Server) bespokeResponses(r *http.Request, analysis *prompt.TicketAnalysis) []prompt.BespokeResponse {
	rendered, err := s.renderer.Render(prompt.TemplateBespokeResponses, map[string]string{
		"category": analysis.Category,
		"issues":   analysis.KeyIssues,
	})
	if err != nil {
		slog.WarnContext(r.Context(), "failed to render bespoke prompt", "error", err)
		return nil
	}

	provider := s.router.Resolve(s.config.Prompts.TicketProvider)
	reply, err := provider.SendCompletion(r.Context(), &providers.CompletionRequest{
		Messages: []providers.Message{{Role: "user", Content: rendered}},
	})
	if err != nil {
		slog.WarnContext(r.Context(), "bespoke response call failed", "error", err)
		return nil
	}

	responses, err := prompt.ParseBespokeResponses(reply.Content)
	if err != nil {
		slog.WarnContext(r.Context(), "unparseable bespoke responses", "error", err)
		return nil
	}
	return responses
}

// oneShot sends a single rendered prompt to the selected provider. On
// failure it writes the error response and returns ok=false.
func (s *Server) oneShot(w http.ResponseWriter, r *http.Request, providerName, text string) (string, bool) {
	provider := s.router.Resolve(providerName)
	resp, err := provider.SendCompletion(r.Context(), &providers.CompletionRequest{
		Messages: []providers.Message{{Role: "user", Content: text}},
	})
	if err != nil {
		types.WriteError(w, r, http.StatusBadGateway,
			types.CodeAIProcessing, "AI processing failed")
		return "", false
	}
	if strings.TrimSpace(resp.Content) == "" {
		types.WriteError(w, r, http.StatusBadGateway,
			types.CodeEmptyAIResponse, "AI returned empty response")
		return "", false
	}
	return resp.Content, true
}

// conversationSummary is the body for GET /v1/conversations/{id}.
type conversationSummary struct {
	ID                  int64     `json:"id"`
	MessageCount        int       `json:"message_count"`
	TotalInputTokens    int       `json:"total_input_tokens"`
	TotalResponseTokens int       `json:"total_response_tokens"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}

	history := s.store.Get(id)
	if history == nil {
		types.WriteError(w, r, http.StatusNotFound,
			types.CodeNotFound, "conversation not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(conversationSummary{
		ID:                  history.ID(),
		MessageCount:        history.MessageCount(),
		TotalInputTokens:    history.TotalInputTokens(),
		TotalResponseTokens: history.TotalResponseTokens(),
		CreatedAt:           history.CreatedAt(),
		UpdatedAt:           history.UpdatedAt(),
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}

	s.store.Clear(id)
	if s.metrics != nil {
		s.metrics.SetActiveConversations(s.store.Len())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) conversationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		types.WriteError(w, r, http.StatusBadRequest,
			types.CodeInvalidRequest, "conversation id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
