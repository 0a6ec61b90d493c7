package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/camt-attest/internal/config"
	"fjacquet/camt-attest/internal/container"
	"fjacquet/camt-attest/internal/ebicstest"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/report"
	"fjacquet/camt-attest/internal/verifyerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expectedCommitment = `{"hostinfo":"EBIXHOST/2023-11-29","iban":"CH4308307000289537312","stmts":[` +
	`{"elctrnc_seq_nb":"247","fr_dt_tm":"2023-11-29T00:00:00","to_dt_tm":"2023-11-29T00:00:00","amt":"31709.14","ccy":"CHF","cd":"OPBD"}]}`

// writeConfig renders a config.yaml for files into dir.
func writeConfig(t *testing.T, dir string, files ebicstest.Files, extra map[string]string) string {
	t.Helper()
	keys := map[string]string{
		"bank_pem":   files.BankPEM,
		"client_pem": files.ClientPEM,
	}
	for k, v := range extra {
		keys[k] = v
	}

	var b strings.Builder
	b.WriteString("input:\n  prefix: " + files.Prefix + "\n")
	b.WriteString("keys:\n")
	for _, k := range []string{"bank_pem", "client_pem", "decrypted_tx_key", "witness_pem", "witness_signature"} {
		if v, ok := keys[k]; ok {
			b.WriteString("  " + k + ": " + v + "\n")
		}
	}
	b.WriteString("statement:\n  iban: " + ebicstest.IBAN + "\n  host_info: " + ebicstest.HostInfo + "\n")
	b.WriteString("output:\n  checkpoints_format: csv\n")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

// TestAttestFlow runs every key recovery and witness variant from configuration
// files to the checkpoint report and checks that they commit to the same bytes.
func TestAttestFlow(t *testing.T) {
	tests := []struct {
		name        string
		digestBlock bool
		extra       func(ebicstest.Files) map[string]string
		labels      []string
	}{
		{
			name:   "slow path",
			extra:  func(ebicstest.Files) map[string]string { return nil },
			labels: []string{"txkey.decrypt.start", "txkey.decrypt.end"},
		},
		{
			name: "fast path",
			extra: func(f ebicstest.Files) map[string]string {
				return map[string]string{"decrypted_tx_key": f.DecryptedTxKey}
			},
			labels: []string{"txkey.encrypt.start", "txkey.encrypt.end"},
		},
		{
			name: "external witness signature",
			extra: func(f ebicstest.Files) map[string]string {
				return map[string]string{"witness_pem": f.WitnessPEM, "witness_signature": f.WitnessSignature}
			},
			labels: []string{"verify_witness_signature"},
		},
		{
			name:        "digest block witness signature",
			digestBlock: true,
			extra: func(f ebicstest.Files) map[string]string {
				return map[string]string{"witness_pem": f.WitnessPEM, "decrypted_tx_key": f.DecryptedTxKey}
			},
			labels: []string{"txkey.encrypt.end", "verify_witness_signature"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			resp := ebicstest.New(t, ebicstest.Options{DigestBlock: tt.digestBlock})
			files := resp.WriteFiles(t, dir, "er3.xml-orig")

			cfg, err := config.InitializeConfig(writeConfig(t, dir, files, tt.extra(files)))
			require.NoError(t, err)

			logger := logging.NewMockLogger()
			c, err := container.NewContainer(cfg, container.WithLogger(logger))
			require.NoError(t, err)
			defer func() { _ = c.Close() }()

			in, err := c.LoadInputs()
			require.NoError(t, err)

			before := len(logger.GetEntries())
			res, err := c.GetPipeline().Run(in)
			require.NoError(t, err)
			assert.Equal(t, expectedCommitment, res.Serialized)

			out, err := c.GetReportGenerator().Generate(res.RunID, res.Checkpoints, cfg.Output.CheckpointsFormat)
			require.NoError(t, err)
			csv := string(out)
			assert.True(t, strings.HasPrefix(csv, "seq,label,cost,delta\n"))
			for _, label := range tt.labels {
				assert.Contains(t, csv, ","+label+",")
			}

			// every run log carries the run id
			for _, entry := range logger.GetEntries()[before:] {
				assert.True(t, hasField(entry, logging.FieldRunID, res.RunID), entry.Message)
			}
		})
	}
}

func TestAttestFlow_WrongWitnessKey(t *testing.T) {
	dir := t.TempDir()
	resp := ebicstest.New(t, ebicstest.Options{})
	files := resp.WriteFiles(t, dir, "er3.xml-orig")

	// the bank key is not the witness key
	cfgFile := writeConfig(t, dir, files, map[string]string{
		"witness_pem":       files.BankPEM,
		"witness_signature": files.WitnessSignature,
	})
	cfg, err := config.InitializeConfig(cfgFile)
	require.NoError(t, err)

	c, err := container.NewContainer(cfg, container.WithLogger(logging.NewMockLogger()))
	require.NoError(t, err)
	in, err := c.LoadInputs()
	require.NoError(t, err)

	_, err = c.GetPipeline().Run(in)
	assert.True(t, verifyerror.IsKind(err, verifyerror.KindAuthenticityFailure))
}

func TestAttestFlow_YAMLReport(t *testing.T) {
	resp := ebicstest.New(t, ebicstest.Options{})
	files := resp.WriteFiles(t, t.TempDir(), "er3.xml-orig")

	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Input.Prefix = files.Prefix
	cfg.Keys.BankPEM = files.BankPEM
	cfg.Keys.ClientPEM = files.ClientPEM
	cfg.Statement.IBAN = ebicstest.IBAN

	c, err := container.NewContainer(cfg, container.WithLogger(logging.NewMockLogger()))
	require.NoError(t, err)
	in, err := c.LoadInputs()
	require.NoError(t, err)
	res, err := c.GetPipeline().Run(in)
	require.NoError(t, err)

	out, err := c.GetReportGenerator().Generate(res.RunID, res.Checkpoints, report.FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(out), "run_id: "+res.RunID)
}

func hasField(entry logging.LogEntry, key string, value interface{}) bool {
	for _, f := range entry.Fields {
		if f.Key == key && f.Value == value {
			return true
		}
	}
	return false
}
