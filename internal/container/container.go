// Package container provides dependency injection for the camt-attest application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"fmt"

	"fjacquet/camt-attest/internal/config"
	"fjacquet/camt-attest/internal/fileutils"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/pipeline"
	"fjacquet/camt-attest/internal/report"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger   logging.Logger
	config   *config.Config
	pipeline *pipeline.Pipeline
	reports  *report.Generator
}

// Option customizes container construction.
type Option func(*options)

type options struct {
	logger       logging.Logger
	pipelineOpts []pipeline.Option
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPipelineOptions forwards options to the pipeline.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(o *options) { o.pipelineOpts = append(o.pipelineOpts, opts...) }
}

// NewContainer creates and wires all application dependencies.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Create logger first as it's needed by other components
	logger := o.logger
	if logger == nil {
		logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}

	c := &Container{
		logger:   logger,
		config:   cfg,
		pipeline: pipeline.New(logger, o.pipelineOpts...),
		reports:  report.NewGenerator(logger),
	}

	logger.Debug("Container initialized successfully",
		logging.Field{Key: "log_level", Value: cfg.Log.Level},
		logging.Field{Key: "checkpoints_format", Value: cfg.Output.CheckpointsFormat})

	return c, nil
}

// LoadInputs reads the files named by the configuration.
func (c *Container) LoadInputs() (pipeline.Inputs, error) {
	return fileutils.LoadInputs(c.config, c.logger)
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetPipeline returns the attestation pipeline.
func (c *Container) GetPipeline() *pipeline.Pipeline {
	return c.pipeline
}

// GetReportGenerator returns the checkpoint report generator.
func (c *Container) GetReportGenerator() *report.Generator {
	return c.reports
}

// Close performs cleanup of container resources.
func (c *Container) Close() error {
	c.logger.Debug("Container closed")
	return nil
}
