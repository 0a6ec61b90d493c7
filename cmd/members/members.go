// Package members contains the command that lists the archive members of an
// EBICS order data payload.
package members

import (
	"fmt"
	"slices"

	"fjacquet/camt-attest/cmd/root"
	"fjacquet/camt-attest/internal/camtparser"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/xmlutils"

	"github.com/spf13/cobra"
)

// Cmd represents the members command
var Cmd = &cobra.Command{
	Use:   "members",
	Short: "List the archive members of a verified EBICS response",
	Long: `Verify an EBICS response exactly as attest does, decrypt and unpack its order
data, then list every archive member with its size, whether it looks like a
CAMT.053 statement, its statement count and whether it carries a statement of
the configured IBAN. Member content is never printed.`,
	Args: cobra.NoArgs,
	RunE: membersFunc,
}

func init() {
	Cmd.Flags().String("prefix", "", "Fragment file prefix; files are read as <prefix>-<Part>")
	root.BindFlag(Cmd, "input.prefix", "prefix")
}

func membersFunc(cmd *cobra.Command, _ []string) error {
	c := root.AppContainer
	if c == nil {
		return fmt.Errorf("container not initialized")
	}

	in, err := c.LoadInputs()
	if err != nil {
		return err
	}

	decoded, err := c.GetPipeline().Decode(in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, m := range decoded.Members {
		kind := "other"
		var ibans []string
		if camtparser.LooksLikeStatement(m.Content) {
			kind = "camt.053"
			if ibans, err = xmlutils.Values(m.Content, xmlutils.XPathStatementIBAN); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "%s\t%d\t%s\t%d\t%t\n", m.Name, len(m.Content), kind, len(ibans), slices.Contains(ibans, in.IBAN))
	}

	root.Log.Info("Archive members listed",
		logging.Field{Key: logging.FieldRunID, Value: decoded.RunID},
		logging.Field{Key: logging.FieldCount, Value: len(decoded.Members)})
	return nil
}
