// Package session drives a run of detections through the matcher and the
// attendance ledger. The controller does not know whether a detection came
// from a live camera frame or a static image; both entry points reduce to
// a sequence of units of work processed through the same pipeline.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// Detection is one face observed in one frame or image, reduced to an
// embedding plus its location in the source picture.
type Detection struct {
	Embedding []float32
	BBox      []float64 // [x1, y1, x2, y2] in pixels
	DetScore  float64
}

// DetectionResult describes what happened to a single detection.
type DetectionResult struct {
	Detection Detection
	Match     match.Result
	// Outcome is valid only when Match.Matched is true.
	Outcome ledger.Outcome
	// NewlyMarked is true when this detection produced a new ledger entry.
	NewlyMarked bool
	// Notice is true the first time an already-marked identity is seen in
	// this run; repeats for the same id stay silent.
	Notice bool
	// Skipped is set with Err when the detection was unusable (dimension
	// mismatch or zero-norm embedding). The session continues.
	Skipped bool
	Err     error
}

// UnitResult summarizes one unit of work (one frame or one image).
type UnitResult struct {
	Results   []DetectionResult
	NewMarks  int
	Persisted bool
}

// Controller orchestrates one run. It holds exactly one embedding store
// and one ledger, created per run and passed in explicitly so sessions
// are independently instantiable (one per camera, parallel tests).
type Controller struct {
	id        string
	store     *roster.Store
	ledger    *ledger.Ledger
	threshold float64
	notified  map[string]bool
}

// New creates a session controller over the given store and ledger.
// Each controller gets a generated run id for correlating its output.
func New(store *roster.Store, l *ledger.Ledger, threshold float64) *Controller {
	return &Controller{
		id:        uuid.New().String(),
		store:     store,
		ledger:    l,
		threshold: threshold,
		notified:  make(map[string]bool),
	}
}

// ID returns the generated identifier of this run.
func (c *Controller) ID() string {
	return c.id
}

// Ledger returns the ledger this session mutates.
func (c *Controller) Ledger() *ledger.Ledger {
	return c.ledger
}

// Process runs a single detection through the matcher and, on a match,
// the ledger. Unusable detections are reported as skipped, never fatal.
func (c *Controller) Process(det Detection, now time.Time) DetectionResult {
	res := DetectionResult{Detection: det}

	m, err := match.Best(det.Embedding, c.store, c.threshold)
	if err != nil {
		res.Skipped = true
		res.Err = err
		return res
	}
	res.Match = m

	if !m.Matched {
		// Unidentified face: no ledger interaction.
		return res
	}

	res.Outcome = c.ledger.MarkPresent(m.ID, m.DisplayName, now)
	switch res.Outcome {
	case ledger.Marked:
		res.NewlyMarked = true
	case ledger.AlreadyMarked:
		if !c.notified[m.ID] {
			c.notified[m.ID] = true
			res.Notice = true
		}
	}
	return res
}

// ProcessUnit processes all detections of one unit of work sequentially,
// in order, then persists the ledger if the unit produced any new mark.
// A persistence failure is returned to the caller; the per-detection
// results are still valid and the unsaved entries remain queued.
func (c *Controller) ProcessUnit(ctx context.Context, detections []Detection, now time.Time) (*UnitResult, error) {
	unit := &UnitResult{Results: make([]DetectionResult, 0, len(detections))}

	for _, det := range detections {
		res := c.Process(det, now)
		if res.NewlyMarked {
			unit.NewMarks++
		}
		unit.Results = append(unit.Results, res)
	}

	if unit.NewMarks > 0 {
		if err := c.ledger.Persist(ctx); err != nil {
			return unit, err
		}
		unit.Persisted = true
	}
	return unit, nil
}

// Flush persists any entries still unsaved, typically called once after a
// whole batch to bound loss to the final unit of work.
func (c *Controller) Flush(ctx context.Context) error {
	return c.ledger.Persist(ctx)
}
