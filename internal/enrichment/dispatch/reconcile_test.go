package dispatch

import (
	"testing"

	"github.com/minhvu-dev/enricher/internal/core/domain"
)

func TestReconcile_RestoresInputOrder(t *testing.T) {
	inputs := []domain.Segment{
		{Text: "one", Start: 0, End: 1},
		{Text: "two", Start: 2, End: 3},
		{Text: "three", Start: 4, End: 5},
	}
	// Results arrive in completion order, not input order.
	results := []domain.ProcessedSegment{
		{OriginalText: "three", NormalizedText: "THREE", Start: 4, End: 5},
		{OriginalText: "one", NormalizedText: "ONE", Start: 0, End: 1},
		{OriginalText: "two", NormalizedText: "TWO", Start: 2, End: 3},
	}

	out := Reconcile(inputs, results)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	for i, want := range []string{"ONE", "TWO", "THREE"} {
		if out[i].NormalizedText != want {
			t.Errorf("out[%d] = %q, want %q", i, out[i].NormalizedText, want)
		}
	}
}

func TestReconcile_ToleratesTimestampDrift(t *testing.T) {
	inputs := []domain.Segment{{Text: "a", Start: 1.0, End: 2.0}}
	results := []domain.ProcessedSegment{
		{NormalizedText: "A", Start: 1.05, End: 2.08},
	}

	out := Reconcile(inputs, results)
	if out[0].NormalizedText != "A" {
		t.Errorf("drifted result not matched: %+v", out[0])
	}
	// Timestamps are normalized back to the input's.
	if out[0].Start != 1.0 || out[0].End != 2.0 {
		t.Errorf("timestamps not restored: (%.2f, %.2f)", out[0].Start, out[0].End)
	}
}

func TestReconcile_UnmatchedInputGetsFallback(t *testing.T) {
	inputs := []domain.Segment{
		{Text: "kept", Start: 0, End: 1},
		{Text: "dropped", Start: 5, End: 6},
	}
	results := []domain.ProcessedSegment{
		{NormalizedText: "KEPT", Start: 0, End: 1},
		// A result far outside tolerance must not be matched.
		{NormalizedText: "STRAY", Start: 20, End: 21},
	}

	out := Reconcile(inputs, results)
	if out[0].NormalizedText != "KEPT" {
		t.Errorf("out[0] = %q", out[0].NormalizedText)
	}
	if !out[1].Fallback || out[1].NormalizedText != "dropped" {
		t.Errorf("unmatched input did not get identity fallback: %+v", out[1])
	}
}

func TestFallback_Identity(t *testing.T) {
	seg := domain.Segment{Text: "そのままで", Start: 3.2, End: 4.8}
	p := Fallback(seg)

	if p.NormalizedText != seg.Text || p.OriginalText != seg.Text {
		t.Errorf("fallback text mismatch: %+v", p)
	}
	if p.Start != seg.Start || p.End != seg.End {
		t.Errorf("fallback timestamps mismatch: %+v", p)
	}
	if !p.Fallback {
		t.Error("fallback not labeled")
	}
	if p.Translation != "" || p.Furigana != "" || len(p.Annotations) != 0 {
		t.Error("fallback carries enrichment fields")
	}
}
