package container

import (
	"testing"

	"fjacquet/camt-attest/internal/config"
	"fjacquet/camt-attest/internal/ebicstest"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Output.CheckpointsFormat = "csv"
	return cfg
}

func TestNewContainer(t *testing.T) {
	tests := []struct {
		name        string
		config      *config.Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "nil config",
			config:      nil,
			expectError: true,
			errorMsg:    "configuration cannot be nil",
		},
		{
			name:   "valid config",
			config: validConfig(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewContainer(tt.config)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c.GetLogger())
			assert.NotNil(t, c.GetPipeline())
			assert.NotNil(t, c.GetReportGenerator())
			assert.Same(t, tt.config, c.GetConfig())
			assert.NoError(t, c.Close())
		})
	}
}

func TestNewContainer_WithLogger(t *testing.T) {
	logger := logging.NewMockLogger()

	c, err := NewContainer(validConfig(), WithLogger(logger))
	require.NoError(t, err)
	assert.Same(t, logger, c.GetLogger())
	assert.True(t, logger.HasEntry("DEBUG", "Container initialized successfully"))
}

func TestContainer_RunFromFiles(t *testing.T) {
	resp := ebicstest.New(t, ebicstest.Options{})
	files := resp.WriteFiles(t, t.TempDir(), "er3.xml-orig")

	cfg := validConfig()
	cfg.Input.Prefix = files.Prefix
	cfg.Keys.BankPEM = files.BankPEM
	cfg.Keys.ClientPEM = files.ClientPEM
	cfg.Statement.IBAN = ebicstest.IBAN
	cfg.Statement.HostInfo = ebicstest.HostInfo

	var ticks uint64
	cost := func() uint64 { ticks++; return ticks }

	c, err := NewContainer(cfg, WithLogger(logging.NewMockLogger()), WithPipelineOptions(pipeline.WithCostFunc(cost)))
	require.NoError(t, err)

	in, err := c.LoadInputs()
	require.NoError(t, err)

	res, err := c.GetPipeline().Run(in)
	require.NoError(t, err)
	assert.Contains(t, res.Serialized, `"iban":"CH4308307000289537312"`)
	require.NotEmpty(t, res.Checkpoints)
	for _, cp := range res.Checkpoints {
		assert.Equal(t, uint64(1), cp.Delta, cp.Label)
	}
}
