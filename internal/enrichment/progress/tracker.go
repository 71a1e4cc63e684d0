package progress

import (
	"math/rand"
	"sync"
	"time"
)

// Liveness tick: while a step is in flight with no granular signal from the
// external call, the step percentage is nudged upward so UI consumers can
// show movement. Cosmetic only, capped well below completion.
const (
	livenessInterval = 500 * time.Millisecond
	livenessCap      = 95.0
)

// Subscriber receives progress pushes for one file.
type Subscriber func(Update)

type fileProgress struct {
	steps   []StepState
	defs    []StepDef
	current int
	status  Status
	started time.Time
}

// Tracker is the per-file step state machine. Explicit lifecycle: construct
// with NewTracker, stop the liveness ticker with Close. Per-file cleanup is
// explicit via Remove; nothing is garbage-collected implicitly.
type Tracker struct {
	mu          sync.Mutex
	files       map[string]*fileProgress
	subscribers map[string][]Subscriber

	liveness bool
	stopOnce sync.Once
	stop     chan struct{}
}

// NewTracker creates a tracker. When liveness is true a background ticker
// nudges in-flight steps; disable it in tests.
func NewTracker(liveness bool) *Tracker {
	t := &Tracker{
		files:       make(map[string]*fileProgress),
		subscribers: make(map[string][]Subscriber),
		liveness:    liveness,
		stop:        make(chan struct{}),
	}
	if liveness {
		go t.tickLoop()
	}
	return t
}

// Close stops the liveness ticker.
func (t *Tracker) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Subscribe registers a callback for a file's updates.
func (t *Tracker) Subscribe(fileID string, fn Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers[fileID] = append(t.subscribers[fileID], fn)
}

// Unsubscribe removes all callbacks for a file.
func (t *Tracker) Unsubscribe(fileID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subscribers, fileID)
}

// StartFile initializes progress for a file with the given steps and marks
// the first step in flight. A file needs at least one step; an empty
// definition list is ignored.
func (t *Tracker) StartFile(fileID string, defs []StepDef) {
	if len(defs) == 0 {
		return
	}
	t.mu.Lock()
	fp := &fileProgress{
		defs:    defs,
		status:  StatusRunning,
		started: time.Now(),
	}
	for _, d := range defs {
		fp.steps = append(fp.steps, StepState{ID: d.ID, Label: d.Label})
	}
	t.files[fileID] = fp
	t.mu.Unlock()

	t.push(fileID)
}

// Advance marks the current step 100% and starts the next one.
func (t *Tracker) Advance(fileID string) {
	t.mu.Lock()
	fp, ok := t.files[fileID]
	if !ok || fp.status != StatusRunning {
		t.mu.Unlock()
		return
	}
	fp.steps[fp.current].Percentage = 100
	if fp.current < len(fp.steps)-1 {
		fp.current++
	} else {
		fp.status = StatusCompleted
	}
	t.mu.Unlock()

	t.push(fileID)
}

// Update sets the current percentage of a step (clamped 0-100) and
// optionally attaches an error, which flips the overall status to error.
func (t *Tracker) Update(fileID, stepID string, percentage float64, stepErr error) {
	t.mu.Lock()
	fp, ok := t.files[fileID]
	if !ok {
		t.mu.Unlock()
		return
	}
	for i := range fp.steps {
		if fp.steps[i].ID != stepID {
			continue
		}
		fp.steps[i].Percentage = clamp(percentage)
		if stepErr != nil {
			fp.steps[i].Error = stepErr.Error()
			fp.status = StatusError
		}
		break
	}
	t.mu.Unlock()

	t.push(fileID)
}

// Complete marks every step finished and the file completed.
func (t *Tracker) Complete(fileID string) {
	t.mu.Lock()
	fp, ok := t.files[fileID]
	if ok {
		for i := range fp.steps {
			fp.steps[i].Percentage = 100
		}
		fp.current = len(fp.steps) - 1
		fp.status = StatusCompleted
	}
	t.mu.Unlock()

	if ok {
		t.push(fileID)
	}
}

// Fail marks the current step failed and the file errored.
func (t *Tracker) Fail(fileID string, err error) {
	t.mu.Lock()
	fp, ok := t.files[fileID]
	if ok {
		fp.steps[fp.current].Error = err.Error()
		fp.status = StatusError
	}
	t.mu.Unlock()

	if ok {
		t.push(fileID)
	}
}

// Remove drops a file's progress state and its subscribers.
func (t *Tracker) Remove(fileID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, fileID)
	delete(t.subscribers, fileID)
}

// Get returns a snapshot of a file's progress.
func (t *Tracker) Get(fileID string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fp, ok := t.files[fileID]
	if !ok {
		return Snapshot{}, false
	}
	return t.snapshotLocked(fileID, fp), true
}

func (t *Tracker) snapshotLocked(fileID string, fp *fileProgress) Snapshot {
	snap := Snapshot{
		FileID:      fileID,
		Status:      fp.status,
		Steps:       append([]StepState(nil), fp.steps...),
		CurrentStep: fp.steps[fp.current].ID,
	}

	var remaining time.Duration
	for i := fp.current; i < len(fp.defs); i++ {
		est := fp.defs[i].Estimate
		if i == fp.current {
			est = time.Duration(float64(est) * (1 - fp.steps[i].Percentage/100))
		}
		remaining += est
	}
	snap.ETA = time.Now().Add(remaining)
	return snap
}

func (t *Tracker) push(fileID string) {
	t.mu.Lock()
	fp, ok := t.files[fileID]
	if !ok {
		t.mu.Unlock()
		return
	}
	update := Update{
		FileID:     fileID,
		StepID:     fp.steps[fp.current].ID,
		Percentage: fp.steps[fp.current].Percentage,
		Status:     fp.status,
	}
	if fp.status == StatusError {
		update.Message = fp.steps[fp.current].Error
	}
	subs := append([]Subscriber(nil), t.subscribers[fileID]...)
	t.mu.Unlock()

	for _, fn := range subs {
		fn(update)
	}
}

func (t *Tracker) tickLoop() {
	ticker := time.NewTicker(livenessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.nudge()
		}
	}
}

// nudge bumps every running file's in-flight step by a small random
// increment, never past the liveness cap.
func (t *Tracker) nudge() {
	t.mu.Lock()
	var dirty []string
	for fileID, fp := range t.files {
		if fp.status != StatusRunning {
			continue
		}
		step := &fp.steps[fp.current]
		if step.Percentage >= livenessCap {
			continue
		}
		step.Percentage = clamp(step.Percentage + rand.Float64()*2)
		if step.Percentage > livenessCap {
			step.Percentage = livenessCap
		}
		dirty = append(dirty, fileID)
	}
	t.mu.Unlock()

	for _, fileID := range dirty {
		t.push(fileID)
	}
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
