// Package attest contains the command that runs a full attestation.
package attest

import (
	"fmt"

	"fjacquet/camt-attest/cmd/root"
	"fjacquet/camt-attest/internal/fileutils"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/models"

	"github.com/spf13/cobra"
)

// stdoutPath sends the checkpoint report to stdout.
const stdoutPath = "-"

// Cmd represents the attest command
var Cmd = &cobra.Command{
	Use:   "attest",
	Short: "Verify an EBICS response and emit the CAMT.053 commitment",
	Long: `Verify the bank signature of an EBICS response, recover the transaction key,
decrypt the order data and emit the JSON commitment over the statements of one
account. The commitment is written to --output, or to stdout when unset.`,
	Args: cobra.NoArgs,
	RunE: attestFunc,
}

func init() {
	flags := Cmd.Flags()
	flags.String("prefix", "", "Fragment file prefix; files are read as <prefix>-<Part>")
	flags.String("iban", "", "IBAN whose statements are committed")
	flags.String("host-info", "", "Run metadata copied into the commitment")
	flags.StringP("output", "o", "", "Commitment output file")
	flags.String("checkpoints", "", "Checkpoint report output file, or - for stdout")
	flags.String("decrypted-key", "", "Padded transaction key candidate for the fast path")

	root.BindFlag(Cmd, "input.prefix", "prefix")
	root.BindFlag(Cmd, "statement.iban", "iban")
	root.BindFlag(Cmd, "statement.host_info", "host-info")
	root.BindFlag(Cmd, "output.commitment", "output")
	root.BindFlag(Cmd, "output.checkpoints", "checkpoints")
	root.BindFlag(Cmd, "keys.decrypted_tx_key", "decrypted-key")
}

func attestFunc(cmd *cobra.Command, _ []string) error {
	c := root.AppContainer
	if c == nil {
		return fmt.Errorf("container not initialized")
	}
	cfg := c.GetConfig()

	in, err := c.LoadInputs()
	if err != nil {
		return err
	}

	res, err := c.GetPipeline().Run(in)
	if err != nil {
		return err
	}

	if cfg.Output.Commitment != "" {
		if err := fileutils.WriteFile(cfg.Output.Commitment, []byte(res.Serialized), models.PermissionOutputFile); err != nil {
			return err
		}
		root.Log.Info("Commitment written",
			logging.Field{Key: logging.FieldRunID, Value: res.RunID},
			logging.Field{Key: logging.FieldOutputFile, Value: cfg.Output.Commitment})
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), res.Serialized)
	}

	switch cfg.Output.Checkpoints {
	case "":
	case stdoutPath:
		if err := c.GetReportGenerator().Write(cmd.OutOrStdout(), res.RunID, res.Checkpoints, cfg.Output.CheckpointsFormat); err != nil {
			return err
		}
	default:
		report, err := c.GetReportGenerator().Generate(res.RunID, res.Checkpoints, cfg.Output.CheckpointsFormat)
		if err != nil {
			return err
		}
		if err := fileutils.WriteFile(cfg.Output.Checkpoints, report, models.PermissionOutputFile); err != nil {
			return err
		}
		root.Log.Info("Checkpoint report written",
			logging.Field{Key: logging.FieldOutputFile, Value: cfg.Output.Checkpoints},
			logging.Field{Key: logging.FieldCount, Value: len(res.Checkpoints)})
	}

	return nil
}
