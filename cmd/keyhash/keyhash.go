// Package keyhash contains the command that prints the EBICS hash of the bank key.
package keyhash

import (
	"crypto/rsa"
	"fmt"

	"fjacquet/camt-attest/cmd/root"
	"fjacquet/camt-attest/internal/config"
	"fjacquet/camt-attest/internal/fileutils"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/signature"
	"fjacquet/camt-attest/internal/verifyerror"

	"github.com/spf13/cobra"
)

// Cmd represents the keyhash command
var Cmd = &cobra.Command{
	Use:   "keyhash",
	Short: "Print the EBICS public-key hash of the bank key",
	Long: `Print the EBICS public-key hash of the configured bank key: the hex SHA-256 of
the lower-case hex exponent and modulus separated by a space. When
keys.bank_key_hash is configured the hash is also compared against it.`,
	Args: cobra.NoArgs,
	RunE: keyhashFunc,
}

func init() {
	Cmd.Flags().String("bank-pem", "", "Bank public key PEM file")
	root.BindFlag(Cmd, "keys.bank_pem", "bank-pem")
}

func keyhashFunc(cmd *cobra.Command, _ []string) error {
	cfg := root.AppConfig
	if cfg == nil {
		return fmt.Errorf("configuration not initialized")
	}

	pub, err := bankKey(cfg)
	if err != nil {
		return err
	}

	hash := signature.KeyHash(pub)
	fmt.Fprintln(cmd.OutOrStdout(), hash)

	if cfg.Keys.BankKeyHash != "" {
		if err := signature.CheckKeyHash(pub, cfg.Keys.BankKeyHash); err != nil {
			return err
		}
		root.Log.Info("Bank key hash matches", logging.Field{Key: logging.FieldKeyBits, Value: pub.N.BitLen()})
	}
	return nil
}

func bankKey(cfg *config.Config) (*rsa.PublicKey, error) {
	switch {
	case cfg.Keys.BankPEM != "":
		data, err := fileutils.ReadFile(cfg.Keys.BankPEM)
		if err != nil {
			return nil, err
		}
		return signature.ParsePublicKeyPEM(data)
	case cfg.Keys.BankModulus != "":
		return signature.PublicKeyFromDecimal(cfg.Keys.BankModulus, cfg.Keys.BankExponent)
	default:
		return nil, &verifyerror.MissingFieldError{Parser: "inputs", Field: "bank public key"}
	}
}
