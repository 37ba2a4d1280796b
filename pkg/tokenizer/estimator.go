// Package tokenizer provides approximate token counting for budget
// comparisons against model context windows.
//
// The estimates are intentionally approximate: the service never needs
// billing-accurate counts, only internally consistent numbers so that
// sliding-window retrieval can compare message cost against a budget.
// For exact counts a model-specific tokenizer would be required.
package tokenizer

// Estimator maps message text to an approximate token count.
//
// Implementations must be deterministic: identical input always yields the
// identical count. Counts are cached at message-append time and never
// recomputed, so a drifting estimator would silently skew historical totals.
type Estimator interface {
	// CountTokens returns a non-negative approximate token count for text.
	// Empty text counts as zero tokens.
	CountTokens(text string) int
}

// charsPerToken is the heuristic ratio used by the default estimator.
// English text under GPT-style tokenizers averages roughly 4 characters
// per token.
const charsPerToken = 4

// HeuristicEstimator estimates tokens using a fixed characters-per-token
// ratio. It is the default estimator for the service.
type HeuristicEstimator struct{}

// NewHeuristicEstimator returns the default chars/4 estimator.
func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{}
}

// CountTokens returns ceil(len(text)/4). Zero for empty text.
func (e *HeuristicEstimator) CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}
