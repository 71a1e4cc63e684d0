// Package completion abstracts the external text-completion provider. The
// pipeline treats both call shapes as opaque, possibly-failing remote calls.
package completion

import (
	"context"

	"github.com/minhvu-dev/enricher/internal/core/domain"
)

// Fields is the enrichment payload for one text.
type Fields struct {
	NormalizedText string   `json:"normalizedText"`
	Translation    string   `json:"translation,omitempty"`
	Annotations    []string `json:"annotations,omitempty"`
	Furigana       string   `json:"furigana,omitempty"`
}

// IndexedText pairs a text with its position so batch responses can be
// matched back to their inputs.
type IndexedText struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Client is the completion-provider boundary.
type Client interface {
	// SendSingle enriches one text.
	SendSingle(ctx context.Context, text, lang string, opts domain.EnrichOptions) (Fields, error)

	// SendBatch enriches several texts in one call. The result map is
	// keyed by the input indexes; missing keys mean the provider dropped
	// that item.
	SendBatch(ctx context.Context, texts []IndexedText, lang string, opts domain.EnrichOptions) (map[int]Fields, error)
}
