// Package dispatch turns a tiered work plan into actual completion calls,
// bounded by per-tier concurrency, and produces a flat, order-preserving
// result list.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/minhvu-dev/enricher/internal/core/domain"
	"github.com/minhvu-dev/enricher/internal/enrichment/metrics"
	"github.com/minhvu-dev/enricher/internal/enrichment/plan"
	"github.com/minhvu-dev/enricher/internal/enrichment/progress"
	"github.com/minhvu-dev/enricher/internal/enrichment/recovery"
	"github.com/minhvu-dev/enricher/internal/infra/completion"
)

// Inter-call pacing within a sequential stream. Spreads calls out so
// parallel streams don't burst into the provider's rate limit.
const (
	mediumPacing = 50 * time.Millisecond
	longPacing   = 100 * time.Millisecond
)

// ErrNilSegments is returned for a nil segment list; per-segment failures
// never surface as errors.
var ErrNilSegments = errors.New("segments must not be nil")

// Dispatcher executes the enrichment plan for one file at a time. Failures
// are isolated per work unit: a failed batch falls back to identity results
// and a failed single call falls back after its retries are exhausted.
//
// Batch failures are deliberately not retried or split into singles —
// re-prompting a failed batch rarely succeeds differently, so the whole
// batch falls back. Tunable policy, not a hard requirement.
type Dispatcher struct {
	client  completion.Client
	retry   *recovery.Manager
	tracker *progress.Tracker
	log     *slog.Logger
}

// New creates a dispatcher. tracker may be nil when no progress consumer
// exists.
func New(client completion.Client, retry *recovery.Manager, tracker *progress.Tracker, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		client:  client,
		retry:   retry,
		tracker: tracker,
		log:     log,
	}
}

// ProcessSegments enriches every segment of a file and always returns one
// output per input, in input order. Only programmer-error inputs (nil list)
// produce an error.
func (d *Dispatcher) ProcessSegments(
	ctx context.Context,
	fileID string,
	segments []domain.Segment,
	sourceLang string,
	opts domain.EnrichOptions,
) ([]domain.ProcessedSegment, error) {
	if segments == nil {
		return nil, ErrNilSegments
	}
	if len(segments) == 0 {
		return []domain.ProcessedSegment{}, nil
	}

	p := plan.Build(segments)
	d.log.Info("dispatching segments",
		"fileID", fileID,
		"total", p.Total,
		"ultraShort", len(p.UltraShort),
		"short", len(p.Short),
		"medium", len(p.Medium),
		"long", len(p.Long),
		"concurrency", p.Settings.Concurrency,
		"batchSize", p.Settings.BatchSize)

	var (
		mu      sync.Mutex
		results []domain.ProcessedSegment
		done    int
	)
	collect := func(batch []domain.ProcessedSegment) {
		mu.Lock()
		results = append(results, batch...)
		done += len(batch)
		pct := float64(done) / float64(p.Total) * 100
		mu.Unlock()
		d.reportProgress(fileID, pct)
	}

	var wg sync.WaitGroup

	// Ultra-short and short segments share combined batches, one external
	// call per batch, bounded by the plan's concurrency.
	batches := combineBatches(segments, p)
	sem := make(chan struct{}, p.Settings.Concurrency)
	for _, batch := range batches {
		wg.Add(1)
		go func(unit domain.WorkUnit) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				collect(fallbackAll(unit.Segments))
				return
			}
			collect(d.runBatch(ctx, unit, sourceLang, opts))
		}(batch)
	}

	// Medium and long segments run in sequential streams, one call per
	// segment, each wrapped by the retry manager.
	for _, tier := range []struct {
		indexes []int
		tier    domain.Tier
		pacing  time.Duration
	}{
		{p.Medium, domain.TierMedium, mediumPacing},
		{p.Long, domain.TierLong, longPacing},
	} {
		for _, stream := range plan.Streams(tier.indexes, p.Settings.Concurrency) {
			wg.Add(1)
			go func(stream []int, tier domain.Tier, pacing time.Duration) {
				defer wg.Done()
				collect(d.runStream(ctx, fileID, segments, stream, tier, pacing, sourceLang, opts))
			}(stream, tier.tier, tier.pacing)
		}
	}

	wg.Wait()

	out := Reconcile(segments, results)
	d.reportProgress(fileID, 100)
	return out, nil
}

// runBatch sends one combined batch. On any failure the whole batch falls
// back to identity.
func (d *Dispatcher) runBatch(ctx context.Context, unit domain.WorkUnit, sourceLang string, opts domain.EnrichOptions) []domain.ProcessedSegment {
	texts := make([]completion.IndexedText, len(unit.Segments))
	for i, seg := range unit.Segments {
		texts[i] = completion.IndexedText{Index: i, Text: seg.Text}
	}

	start := time.Now()
	fields, err := d.client.SendBatch(ctx, texts, sourceLang, opts)
	metrics.CompletionLatency.WithLabelValues("batch").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CompletionCalls.WithLabelValues("batch", "error").Inc()
		d.log.Warn("batch call failed, falling back",
			"tier", unit.Tier,
			"size", len(unit.Segments),
			"error", err)
		return fallbackAll(unit.Segments)
	}
	metrics.CompletionCalls.WithLabelValues("batch", "success").Inc()

	out := make([]domain.ProcessedSegment, 0, len(unit.Segments))
	for i, seg := range unit.Segments {
		f, ok := fields[i]
		if !ok || f.NormalizedText == "" {
			metrics.SegmentsProcessed.WithLabelValues(string(unit.Tier), "fallback").Inc()
			out = append(out, Fallback(seg))
			continue
		}
		metrics.SegmentsProcessed.WithLabelValues(string(unit.Tier), "success").Inc()
		out = append(out, enriched(seg, f))
	}
	return out
}

// runStream processes one sequential stream of single-segment calls with
// inter-call pacing.
func (d *Dispatcher) runStream(
	ctx context.Context,
	fileID string,
	segments []domain.Segment,
	stream []int,
	tier domain.Tier,
	pacing time.Duration,
	sourceLang string,
	opts domain.EnrichOptions,
) []domain.ProcessedSegment {
	out := make([]domain.ProcessedSegment, 0, len(stream))

	for i, idx := range stream {
		seg := segments[idx]

		if i > 0 {
			select {
			case <-ctx.Done():
				out = append(out, Fallback(seg))
				continue
			case <-time.After(pacing):
			}
		}

		out = append(out, d.runSingle(ctx, fileID, seg, tier, sourceLang, opts))
	}

	d.log.Debug("stream complete", "fileID", fileID, "tier", tier, "segments", len(stream))
	return out
}

// runSingle issues one retry-wrapped call. An irrecoverable failure becomes
// a fallback entry; it never aborts sibling segments.
func (d *Dispatcher) runSingle(ctx context.Context, fileID string, seg domain.Segment, tier domain.Tier, sourceLang string, opts domain.EnrichOptions) domain.ProcessedSegment {
	task := &domain.TaskContext{FileID: fileID, Op: domain.OperationPostprocess}

	var fields completion.Fields
	err := d.retry.Do(ctx, task, func(ctx context.Context) error {
		start := time.Now()
		var callErr error
		fields, callErr = d.client.SendSingle(ctx, seg.Text, sourceLang, opts)
		metrics.CompletionLatency.WithLabelValues("single").Observe(time.Since(start).Seconds())
		if callErr != nil {
			metrics.CompletionCalls.WithLabelValues("single", "error").Inc()
			return callErr
		}
		metrics.CompletionCalls.WithLabelValues("single", "success").Inc()
		return nil
	})
	if err != nil {
		metrics.SegmentsProcessed.WithLabelValues(string(tier), "fallback").Inc()
		return Fallback(seg)
	}

	metrics.SegmentsProcessed.WithLabelValues(string(tier), "success").Inc()
	return enriched(seg, fields)
}

func (d *Dispatcher) reportProgress(fileID string, pct float64) {
	if d.tracker == nil || fileID == "" {
		return
	}
	d.tracker.Update(fileID, progress.StepPostprocess, pct, nil)
}

// combineBatches groups the ultra-short and short tiers into shared
// batches. A batch holding only ultra-short fragments may fill up to the
// ultra-short cap; once a short segment joins, the plan's batch size
// applies.
func combineBatches(segments []domain.Segment, p plan.Plan) []domain.WorkUnit {
	combined := make([]int, 0, len(p.UltraShort)+len(p.Short))
	combined = append(combined, p.UltraShort...)
	combined = append(combined, p.Short...)
	sort.Ints(combined)

	var units []domain.WorkUnit
	var cur domain.WorkUnit
	allUltra := true

	flush := func() {
		if len(cur.Indexes) > 0 {
			units = append(units, cur)
			cur = domain.WorkUnit{}
			allUltra = true
		}
	}

	for _, idx := range combined {
		isUltra := plan.Classify(segments[idx]) == domain.TierUltraShort

		limit := p.Settings.BatchSize
		if allUltra && isUltra {
			limit = plan.UltraShortBatchCap
		}
		if len(cur.Indexes) >= limit {
			flush()
		}

		cur.Indexes = append(cur.Indexes, idx)
		cur.Segments = append(cur.Segments, segments[idx])
		if isUltra {
			if cur.Tier == "" {
				cur.Tier = domain.TierUltraShort
			}
		} else {
			cur.Tier = domain.TierShort
			allUltra = false
		}
	}
	flush()

	return units
}

func fallbackAll(segments []domain.Segment) []domain.ProcessedSegment {
	out := make([]domain.ProcessedSegment, len(segments))
	for i, seg := range segments {
		out[i] = Fallback(seg)
	}
	return out
}

func enriched(seg domain.Segment, f completion.Fields) domain.ProcessedSegment {
	return domain.ProcessedSegment{
		OriginalText:   seg.Text,
		NormalizedText: f.NormalizedText,
		Translation:    f.Translation,
		Annotations:    f.Annotations,
		Furigana:       f.Furigana,
		Start:          seg.Start,
		End:            seg.End,
	}
}

