package engine

import (
	"sync/atomic"

	"github.com/roach88/plangraph/internal/plan"
)

// Sequencer numbers applied deltas. Sequence numbers start at 1, have no
// gaps within a run and give the report's audit trail a total order that
// does not depend on wall time.
type Sequencer struct {
	last atomic.Int64
}

// NewSequencer returns a sequencer whose first stamp is 1.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Stamp wraps deltas in AppliedDelta records carrying consecutive sequence
// numbers, preserving their order.
func (s *Sequencer) Stamp(deltas []plan.Delta) []AppliedDelta {
	out := make([]AppliedDelta, len(deltas))
	for i, d := range deltas {
		out[i] = AppliedDelta{Seq: s.last.Add(1), Delta: d}
	}
	return out
}

// Last returns the most recent sequence number, or 0 before the first
// stamp.
func (s *Sequencer) Last() int64 {
	return s.last.Load()
}
