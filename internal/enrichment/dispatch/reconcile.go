package dispatch

import (
	"math"

	"github.com/minhvu-dev/enricher/internal/core/domain"
)

// Timestamp tolerance when matching results back to their inputs. Completion
// order across work units is unspecified; (start, end) proximity restores
// input order deterministically.
const matchTolerance = 0.1

// Reconcile produces exactly one output per input, in input order. Each
// result is matched to its originating segment by timestamp proximity; any
// input left unmatched receives a fallback entry.
func Reconcile(inputs []domain.Segment, results []domain.ProcessedSegment) []domain.ProcessedSegment {
	out := make([]domain.ProcessedSegment, len(inputs))
	used := make([]bool, len(results))

	for i, seg := range inputs {
		matched := false
		for j := range results {
			if used[j] {
				continue
			}
			if math.Abs(results[j].Start-seg.Start) <= matchTolerance &&
				math.Abs(results[j].End-seg.End) <= matchTolerance {
				out[i] = results[j]
				out[i].Start = seg.Start
				out[i].End = seg.End
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			out[i] = Fallback(seg)
		}
	}

	return out
}
