package snapshot

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// DefaultLabelPrefix is the prefix used by SequenceLabeler when none is given.
const DefaultLabelPrefix = "snapshot"

// Labeler produces a human-readable label for the seq-th capture.
type Labeler interface {
	Label(seq uint64) string
}

// LabelerFunc adapts a function to the Labeler interface.
type LabelerFunc func(seq uint64) string

// Label implements Labeler.
func (f LabelerFunc) Label(seq uint64) string {
	return f(seq)
}

// SequenceLabeler labels captures as "<prefix>-<seq>-<suffix>".
// The suffix is eight hex characters drawn from Rand, so two owners
// capturing at the same sequence position still get distinct labels.
type SequenceLabeler struct {
	Prefix string
	Rand   io.Reader
}

// NewSequenceLabeler creates a labeler reading randomness from r.
// A nil reader falls back to crypto/rand.
func NewSequenceLabeler(prefix string, r io.Reader) *SequenceLabeler {
	if prefix == "" {
		prefix = DefaultLabelPrefix
	}
	if r == nil {
		r = rand.Reader
	}
	return &SequenceLabeler{Prefix: prefix, Rand: r}
}

// Label implements Labeler.
func (l *SequenceLabeler) Label(seq uint64) string {
	u, err := uuid.NewRandomFromReader(l.Rand)
	if err != nil {
		// Exhausted or failing source; the sequence alone is still unique per owner.
		return fmt.Sprintf("%s-%d", l.Prefix, seq)
	}
	return fmt.Sprintf("%s-%d-%s", l.Prefix, seq, u.String()[:8])
}
