// Package meter records cumulative cost checkpoints between pipeline stages.
//
// Checkpoints are diagnostics only. Nothing in the pipeline reads them back to make
// a decision.
package meter

import (
	"time"

	"fjacquet/camt-attest/internal/logging"
)

// CostFunc returns the cumulative cost consumed so far, in the unit of the
// execution environment (cycles, nanoseconds, ...).
type CostFunc func() uint64

// Recorder accepts checkpoints.
type Recorder interface {
	Checkpoint(label string)
}

// Checkpoint is one recorded measurement.
type Checkpoint struct {
	Seq   int    `csv:"seq" yaml:"seq"`
	Label string `csv:"label" yaml:"label"`
	// Cost is cumulative since the meter was created.
	Cost uint64 `csv:"cost" yaml:"cost"`
	// Delta is the cost since the previous checkpoint.
	Delta uint64 `csv:"delta" yaml:"delta"`
}

// Meter is a Recorder that keeps every checkpoint in order and logs each one at
// debug level. It is not safe for concurrent use; a pipeline run owns its meter.
type Meter struct {
	cost        CostFunc
	logger      logging.Logger
	base        uint64
	last        uint64
	checkpoints []Checkpoint
}

// New creates a meter. A nil cost function measures wall-clock nanoseconds and a
// nil logger discards.
func New(cost CostFunc, logger logging.Logger) *Meter {
	if cost == nil {
		cost = WallClock()
	}
	base := cost()
	return &Meter{cost: cost, logger: logging.OrDiscard(logger), base: base, last: base}
}

// Checkpoint records the current cost under label.
func (m *Meter) Checkpoint(label string) {
	now := m.cost()
	cp := Checkpoint{
		Seq:   len(m.checkpoints) + 1,
		Label: label,
		Cost:  now - m.base,
		Delta: now - m.last,
	}
	m.last = now
	m.checkpoints = append(m.checkpoints, cp)

	m.logger.Debug("Cost checkpoint",
		logging.Field{Key: logging.FieldStage, Value: label},
		logging.Field{Key: logging.FieldCost, Value: cp.Cost},
		logging.Field{Key: logging.FieldDelta, Value: cp.Delta})
}

// Checkpoints returns a copy of the recorded checkpoints.
func (m *Meter) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, len(m.checkpoints))
	copy(out, m.checkpoints)
	return out
}

// Total is the cost recorded at the last checkpoint.
func (m *Meter) Total() uint64 {
	if len(m.checkpoints) == 0 {
		return 0
	}
	return m.checkpoints[len(m.checkpoints)-1].Cost
}

// WallClock returns a CostFunc counting nanoseconds since its creation.
func WallClock() CostFunc {
	start := time.Now()
	return func() uint64 {
		return uint64(time.Since(start).Nanoseconds())
	}
}

type nop struct{}

func (nop) Checkpoint(string) {}

// Nop returns a Recorder that drops every checkpoint.
func Nop() Recorder { return nop{} }

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop()
	}
	return r
}
