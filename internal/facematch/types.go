// Package facematch holds the embedding comparison engine: validation of stored
// vectors, cosine scoring, the corpus scan and the threshold decisions built on top of it.
package facematch

// Embedding is a validated face embedding of the configured dimension.
type Embedding []float32

// Record is one stored face as seen by the engine.
type Record struct {
	Identity    string
	DisplayName string
	Raw         RawEmbedding
}

// SimilarityResult is the score of one stored record against the query.
type SimilarityResult struct {
	Identity    string
	DisplayName string
	Score       float64
}

// ScanResult holds every valid comparison of a scan in corpus order.
type ScanResult struct {
	Results []SimilarityResult
	Skipped int
}

// OutcomeKind names the decision reached for a request.
type OutcomeKind string

const (
	OutcomeDuplicateRejected     OutcomeKind = "duplicate_rejected"
	OutcomeRegistered            OutcomeKind = "registered"
	OutcomeMatched               OutcomeKind = "matched"
	OutcomeNoMatchNoData         OutcomeKind = "no_match_no_data"
	OutcomeNoMatchBelowThreshold OutcomeKind = "no_match_below_threshold"
)

// Outcome is the result of applying a Policy to engine output.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Hint    string

	// Identity is set for registrations.
	Identity string

	// HighestScore is the best duplicate-check score; HasScore is false when
	// nothing in the corpus could be compared.
	HighestScore float64
	HasScore     bool

	// Best and Matches are set for recognitions with at least one valid comparison.
	Best    *SimilarityResult
	Matches []SimilarityResult
}

// Success reports whether the request completed the way the client asked for.
// A recognition below the threshold still succeeds; it just has no match.
func (o Outcome) Success() bool {
	switch o.Kind {
	case OutcomeRegistered, OutcomeMatched, OutcomeNoMatchBelowThreshold:
		return true
	default:
		return false
	}
}
