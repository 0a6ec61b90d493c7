// Package attest exposes the attestation pipeline to programs embedding it
// without the CLI, for instance a proving host that supplies inputs in memory.
package attest

import (
	"fjacquet/camt-attest/internal/ebicsparser"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/meter"
	"fjacquet/camt-attest/internal/pipeline"
	"fjacquet/camt-attest/internal/verifyerror"
)

type (
	// Inputs are the in-memory values of one run.
	Inputs = pipeline.Inputs
	// Fragments are the canonical EBICS response fragments.
	Fragments = ebicsparser.Fragments
	// Result carries the commitment and its canonical serialization.
	Result = pipeline.Result
	// Kind is a failure category.
	Kind = verifyerror.Kind
	// Logger receives structured run logs.
	Logger = logging.Logger
	// CostFunc reports the cumulative cost used by checkpoints.
	CostFunc = meter.CostFunc
)

// Failure categories.
const (
	KindMalformedInput       = verifyerror.KindMalformedInput
	KindProtocolViolation    = verifyerror.KindProtocolViolation
	KindIntegrityMismatch    = verifyerror.KindIntegrityMismatch
	KindAuthenticityFailure  = verifyerror.KindAuthenticityFailure
	KindDecryptionFailure    = verifyerror.KindDecryptionFailure
	KindCardinalityViolation = verifyerror.KindCardinalityViolation
)

type settings struct {
	logger Logger
	opts   []pipeline.Option
}

// Option configures Run.
type Option func(*settings)

// WithLogger sends run logs to logger. Runs are silent by default.
func WithLogger(logger Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithCostFunc sets the cost source of the checkpoints.
func WithCostFunc(cost CostFunc) Option {
	return func(s *settings) { s.opts = append(s.opts, pipeline.WithCostFunc(cost)) }
}

// Run verifies in and returns the commitment. Any error means no commitment may
// be emitted.
func Run(in Inputs, opts ...Option) (*Result, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return pipeline.New(s.logger, s.opts...).Run(in)
}

// KindOf returns the failure category of err, or "" for foreign errors.
func KindOf(err error) Kind {
	return verifyerror.KindOf(err)
}
