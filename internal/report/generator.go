// Package report renders meter checkpoints for offline cost analysis.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/meter"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// Supported checkpoint report formats.
const (
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// Generator renders checkpoint reports in csv or yaml.
type Generator struct {
	logger logging.Logger
}

// NewGenerator creates a new instance of Generator.
func NewGenerator(logger logging.Logger) *Generator {
	return &Generator{logger: logging.OrDiscard(logger).WithField("component", "ReportGenerator")}
}

// yamlReport is the yaml document layout.
type yamlReport struct {
	RunID       string             `yaml:"run_id"`
	Total       uint64             `yaml:"total"`
	Checkpoints []meter.Checkpoint `yaml:"checkpoints"`
}

// Generate renders checkpoints in the given format. runID is only carried by the
// yaml format; csv rows are the bare checkpoints.
func (g *Generator) Generate(runID string, checkpoints []meter.Checkpoint, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return g.generateCSV(checkpoints)
	case FormatYAML:
		return g.generateYAML(runID, checkpoints)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// Write renders checkpoints into w.
func (g *Generator) Write(w io.Writer, runID string, checkpoints []meter.Checkpoint, format string) error {
	out, err := g.Generate(runID, checkpoints, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	g.logger.Debug("Checkpoint report written",
		logging.Field{Key: logging.FieldCount, Value: len(checkpoints)})
	return nil
}

func (g *Generator) generateCSV(checkpoints []meter.Checkpoint) ([]byte, error) {
	if checkpoints == nil {
		checkpoints = []meter.Checkpoint{}
	}
	var buf bytes.Buffer
	csvWriter := csv.NewWriter(&buf)
	if err := gocsv.MarshalCSV(&checkpoints, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		g.logger.WithError(err).Error("Failed to marshal CSV report")
		return nil, fmt.Errorf("failed to marshal CSV report: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) generateYAML(runID string, checkpoints []meter.Checkpoint) ([]byte, error) {
	doc := yamlReport{RunID: runID, Checkpoints: checkpoints}
	if n := len(checkpoints); n > 0 {
		doc.Total = checkpoints[n-1].Cost
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal YAML report")
		return nil, fmt.Errorf("failed to marshal YAML report: %w", err)
	}
	return out, nil
}
