package facematch

import (
	"errors"
	"fmt"
)

// DefaultThreshold is the similarity at which two faces are the same person.
const DefaultThreshold = 0.85

// User-facing messages.
const (
	MsgDuplicate  = "You cannot register your face twice."
	MsgRegistered = "Face registered successfully"
	MsgNoData     = "No valid face embeddings found in the database."
	HintNoData    = "Make sure at least one face has been registered and try again."
	MsgNoMatch    = "No matching face found in the database."
)

// ErrInvalidThreshold is returned for thresholds outside (0, 1].
var ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")

// Policy applies a similarity threshold to engine output.
// The same threshold serves registration and recognition.
type Policy struct {
	threshold float64
}

// NewPolicy creates a policy with the given threshold.
func NewPolicy(threshold float64) (Policy, error) {
	if !(threshold > 0 && threshold <= 1) {
		return Policy{}, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return Policy{threshold: threshold}, nil
}

// DefaultPolicy returns a policy using DefaultThreshold.
func DefaultPolicy() Policy {
	return Policy{threshold: DefaultThreshold}
}

// Threshold returns the configured threshold.
func (p Policy) Threshold() float64 {
	return p.threshold
}

// DecideRegistration rejects the registration when a stored face scores at or
// above the threshold. found=false (nothing comparable) always registers.
func (p Policy) DecideRegistration(identity string, highest float64, found bool) Outcome {
	if found && highest >= p.threshold {
		return Outcome{
			Kind:         OutcomeDuplicateRejected,
			Message:      MsgDuplicate,
			HighestScore: highest,
			HasScore:     true,
		}
	}
	return Outcome{
		Kind:         OutcomeRegistered,
		Message:      MsgRegistered,
		Identity:     identity,
		HighestScore: highest,
		HasScore:     found,
	}
}

// DecideRecognition picks the top of a ranked list. An empty list means no
// usable data, which is reported differently from a miss.
func (p Policy) DecideRecognition(ranked []SimilarityResult) Outcome {
	if len(ranked) == 0 {
		return Outcome{
			Kind:    OutcomeNoMatchNoData,
			Message: MsgNoData,
			Hint:    HintNoData,
		}
	}

	best := ranked[0]
	out := Outcome{
		Best:         &best,
		Matches:      ranked,
		HighestScore: best.Score,
		HasScore:     true,
	}
	if best.Score >= p.threshold {
		out.Kind = OutcomeMatched
		out.Message = "Face matched with student: " + best.DisplayName
	} else {
		out.Kind = OutcomeNoMatchBelowThreshold
		out.Message = MsgNoMatch
	}
	return out
}
