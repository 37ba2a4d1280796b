package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TicketPriority is the triage priority assigned by the model.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "LOW"
	PriorityMedium TicketPriority = "MEDIUM"
	PriorityHigh   TicketPriority = "HIGH"
	PriorityUrgent TicketPriority = "URGENT"
)

// UnmarshalJSON parses a priority leniently: case-insensitive, and any
// unrecognized or blank value degrades to MEDIUM rather than failing the
// whole analysis. Models do not reliably respect enum casing.
func (p *TicketPriority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("priority must be a string: %w", err)
	}

	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LOW":
		*p = PriorityLow
	case "MEDIUM":
		*p = PriorityMedium
	case "HIGH":
		*p = PriorityHigh
	case "URGENT":
		*p = PriorityUrgent
	default:
		*p = PriorityMedium
	}
	return nil
}

// TicketAnalysis is the structured result of analyzing a support ticket.
type TicketAnalysis struct {
	Category                string         `json:"category"`
	Priority                TicketPriority `json:"priority"`
	Sentiment               string         `json:"sentiment"`
	Summary                 string         `json:"summary"`
	SuggestedResolution     string         `json:"suggestedResolution"`
	EstimatedResolutionTime int            `json:"estimatedResolutionTime"`
	KeyIssues               string         `json:"keyIssues"`
}

// NeedsBespokeResponse reports whether the ticket is severe enough to
// warrant generated customer responses.
func (a *TicketAnalysis) NeedsBespokeResponse() bool {
	return a.Priority == PriorityHigh || a.Priority == PriorityUrgent
}

// BespokeResponse is one generated customer response suggestion.
type BespokeResponse struct {
	Tone     string `json:"tone"`
	Response string `json:"response"`
}

// ParseTicketAnalysis decodes a model reply into a TicketAnalysis.
// The reply may wrap the JSON object in markdown fences or prose; the
// parser extracts the first top-level JSON object.
func ParseTicketAnalysis(reply string) (*TicketAnalysis, error) {
	payload, err := extractJSON(reply, '{', '}')
	if err != nil {
		return nil, err
	}

	var analysis TicketAnalysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse ticket analysis: %w", err)
	}
	return &analysis, nil
}

// ParseBespokeResponses decodes a model reply into response suggestions.
func ParseBespokeResponses(reply string) ([]BespokeResponse, error) {
	payload, err := extractJSON(reply, '[', ']')
	if err != nil {
		return nil, err
	}

	var responses []BespokeResponse
	if err := json.Unmarshal([]byte(payload), &responses); err != nil {
		return nil, fmt.Errorf("failed to parse bespoke responses: %w", err)
	}
	return responses, nil
}

// extractJSON returns the substring from the first open delimiter to the
// last close delimiter.
func extractJSON(reply string, open, close byte) (string, error) {
	start := strings.IndexByte(reply, open)
	end := strings.LastIndexByte(reply, close)
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("reply contains no JSON payload")
	}
	return reply[start : end+1], nil
}
