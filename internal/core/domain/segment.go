package domain

import "unicode/utf8"

// Tier buckets a segment by character count. The tier drives batching and
// concurrency policy: tiny fragments batch extremely well, long fragments
// need small batches and low concurrency.
type Tier string

const (
	TierUltraShort Tier = "ultra_short" // <= 15 chars
	TierShort      Tier = "short"      // <= 50 chars
	TierMedium     Tier = "medium"     // <= 120 chars
	TierLong       Tier = "long"       // > 120 chars
)

// Tier boundaries, in characters (runes, not bytes — source text is CJK).
const (
	UltraShortMaxChars = 15
	ShortMaxChars      = 50
	MediumMaxChars     = 120
)

// Segment is one timestamped span of source text produced by the
// transcriber. Immutable; ordering within a file is Start ascending.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Chars returns the segment length in runes.
func (s Segment) Chars() int {
	return utf8.RuneCountInString(s.Text)
}

// ProcessedSegment is the enriched counterpart of a Segment. Start/End are
// copied unchanged from the input and act as the join key when results are
// reassembled after out-of-order completion.
type ProcessedSegment struct {
	OriginalText   string   `json:"originalText"`
	NormalizedText string   `json:"normalizedText"`
	Translation    string   `json:"translation,omitempty"`
	Annotations    []string `json:"annotations,omitempty"`
	Furigana       string   `json:"furigana,omitempty"`
	Start          float64  `json:"start"`
	End            float64  `json:"end"`
	Fallback       bool     `json:"fallback,omitempty"`
}

// WorkUnit is one external-call payload: a single segment or a contiguous
// group assigned to the same call. Indexes point back into the original
// segment list.
type WorkUnit struct {
	Segments []Segment
	Indexes  []int
	Tier     Tier
}

// EnrichOptions controls which enrichment fields the pipeline requests.
type EnrichOptions struct {
	TargetLanguage    string
	EnableAnnotations bool
	EnableFurigana    bool
}
