// Package plan partitions a file's segments into size tiers and derives the
// batch size and concurrency each tier should be dispatched with.
//
// Very short fragments batch extremely well (per-call overhead dominates),
// so they are grouped aggressively into few external calls. Long fragments
// are the opposite: per-call latency and token cost dominate and retries are
// expensive, so they get small batches and low concurrency.
package plan

import (
	"github.com/minhvu-dev/enricher/internal/core/domain"
)

// Maximum number of ultra-short fragments folded into one external call.
const UltraShortBatchCap = 50

// Settings holds the derived dispatch parameters for the medium/long tiers.
type Settings struct {
	Concurrency int
	BatchSize   int
}

// Plan is the tiered work layout for one file. Index slices point back into
// the original segment list so results can be reassembled later.
type Plan struct {
	UltraShort []int
	Short      []int
	Medium     []int
	Long       []int

	Settings Settings
	Total    int
}

// Classify buckets a segment by rune count.
func Classify(s domain.Segment) domain.Tier {
	switch n := s.Chars(); {
	case n <= domain.UltraShortMaxChars:
		return domain.TierUltraShort
	case n <= domain.ShortMaxChars:
		return domain.TierShort
	case n <= domain.MediumMaxChars:
		return domain.TierMedium
	default:
		return domain.TierLong
	}
}

// DeriveSettings computes concurrency and batch size from the total segment
// count of the file. Small files get conservative settings; large files fan
// out wider.
func DeriveSettings(total int) Settings {
	switch {
	case total <= 3:
		return Settings{Concurrency: 2, BatchSize: 3}
	case total <= 10:
		return Settings{Concurrency: 3, BatchSize: 4}
	case total <= 20:
		return Settings{Concurrency: 4, BatchSize: 5}
	default:
		return Settings{Concurrency: 5, BatchSize: 6}
	}
}

// Build classifies every segment and derives dispatch settings. Pure
// transform; no error conditions.
func Build(segments []domain.Segment) Plan {
	p := Plan{
		Total:    len(segments),
		Settings: DeriveSettings(len(segments)),
	}

	for i, s := range segments {
		switch Classify(s) {
		case domain.TierUltraShort:
			p.UltraShort = append(p.UltraShort, i)
		case domain.TierShort:
			p.Short = append(p.Short, i)
		case domain.TierMedium:
			p.Medium = append(p.Medium, i)
		default:
			p.Long = append(p.Long, i)
		}
	}

	return p
}

// Batches groups indexes into contiguous batches of at most size.
func Batches(indexes []int, size int) [][]int {
	if size <= 0 {
		size = 1
	}
	var out [][]int
	for start := 0; start < len(indexes); start += size {
		end := min(start+size, len(indexes))
		out = append(out, indexes[start:end])
	}
	return out
}

// Streams splits indexes into n round-robin streams for sequential
// processing within each stream.
func Streams(indexes []int, n int) [][]int {
	if n <= 0 {
		n = 1
	}
	if n > len(indexes) {
		n = len(indexes)
	}
	if n == 0 {
		return nil
	}
	out := make([][]int, n)
	for i, idx := range indexes {
		out[i%n] = append(out[i%n], idx)
	}
	return out
}
