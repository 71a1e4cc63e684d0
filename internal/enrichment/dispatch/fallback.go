package dispatch

import "github.com/minhvu-dev/enricher/internal/core/domain"

// Fallback synthesizes an identity result for a segment whose enrichment
// could not be recovered: the normalized text echoes the input and all
// enrichment fields stay empty. Kept as an explicit mapping so the policy
// is testable without network mocking.
func Fallback(seg domain.Segment) domain.ProcessedSegment {
	return domain.ProcessedSegment{
		OriginalText:   seg.Text,
		NormalizedText: seg.Text,
		Start:          seg.Start,
		End:            seg.End,
		Fallback:       true,
	}
}
