package types

import "sort"

// PairFailure records a pair whose evaluation failed. Index is the
// pair's position in the input slice.
type PairFailure struct {
	Pair  string `json:"pair"`
	Index int    `json:"index"`
	Err   error  `json:"-"`
}

func (f PairFailure) Error() string {
	return f.Pair + ": " + f.Err.Error()
}

func (f PairFailure) Unwrap() error { return f.Err }

// Batch is the outcome of one evaluation cycle. Results keeps input
// order and includes side=none decisions; failed pairs are only in
// Failures.
type Batch struct {
	Results  []DecisionResult `json:"results"`
	Failures []PairFailure    `json:"failures,omitempty"`
}

// Actionable returns the long/short decisions, highest certainty first.
// Equal certainty keeps input order.
func (b Batch) Actionable() []DecisionResult {
	out := make([]DecisionResult, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Actionable() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Certainty > out[j].Certainty
	})
	return out
}
