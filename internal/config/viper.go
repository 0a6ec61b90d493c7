// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the configuration.
const EnvPrefix = "ATTEST"

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	// Input names the canonicalized fragment files. Explicit paths win over the
	// names derived from Prefix.
	Input struct {
		Prefix         string `mapstructure:"prefix" yaml:"prefix"`
		SignedInfo     string `mapstructure:"signed_info" yaml:"signed_info"`
		Authenticated  string `mapstructure:"authenticated" yaml:"authenticated"`
		SignatureValue string `mapstructure:"signature_value" yaml:"signature_value"`
		OrderData      string `mapstructure:"order_data" yaml:"order_data"`
		DigestBlock    string `mapstructure:"digest_block" yaml:"digest_block"`
	} `mapstructure:"input" yaml:"input"`

	// Keys holds the bank key as decimal values and every other key as a file path.
	Keys struct {
		BankModulus      string `mapstructure:"bank_modulus" yaml:"bank_modulus"`
		BankExponent     string `mapstructure:"bank_exponent" yaml:"bank_exponent"`
		BankPEM          string `mapstructure:"bank_pem" yaml:"bank_pem"`
		BankKeyHash      string `mapstructure:"bank_key_hash" yaml:"bank_key_hash"`
		ClientPEM        string `mapstructure:"client_pem" yaml:"client_pem"`
		DecryptedTxKey   string `mapstructure:"decrypted_tx_key" yaml:"decrypted_tx_key"`
		WitnessPEM       string `mapstructure:"witness_pem" yaml:"witness_pem"`
		WitnessSignature string `mapstructure:"witness_signature" yaml:"witness_signature"`
	} `mapstructure:"keys" yaml:"keys"`

	Statement struct {
		IBAN     string `mapstructure:"iban" yaml:"iban"`
		HostInfo string `mapstructure:"host_info" yaml:"host_info"`
	} `mapstructure:"statement" yaml:"statement"`

	Output struct {
		Commitment        string `mapstructure:"commitment" yaml:"commitment"`
		Checkpoints       string `mapstructure:"checkpoints" yaml:"checkpoints"`
		CheckpointsFormat string `mapstructure:"checkpoints_format" yaml:"checkpoints_format"`
	} `mapstructure:"output" yaml:"output"`
}

// InitializeConfig loads configuration from defaults, config.yaml (or configFile
// when non-empty) and ATTEST_* environment variables, in increasing precedence.
func InitializeConfig(configFile string) (*Config, error) {
	return Load(viper.New(), configFile)
}

// Load reads the configuration into v. Callers bind command-line flags on v
// beforehand so they take precedence over every other source.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.camt-attest")
		v.AddConfigPath(".camt-attest")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file; only a missing default file is tolerated
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Input defaults
	v.SetDefault("input.prefix", "")
	v.SetDefault("input.signed_info", "")
	v.SetDefault("input.authenticated", "")
	v.SetDefault("input.signature_value", "")
	v.SetDefault("input.order_data", "")
	v.SetDefault("input.digest_block", "")

	// Key defaults
	v.SetDefault("keys.bank_modulus", "")
	v.SetDefault("keys.bank_exponent", "65537")
	v.SetDefault("keys.bank_pem", "")
	v.SetDefault("keys.bank_key_hash", "")
	v.SetDefault("keys.client_pem", "")
	v.SetDefault("keys.decrypted_tx_key", "")
	v.SetDefault("keys.witness_pem", "")
	v.SetDefault("keys.witness_signature", "")

	// Statement defaults
	v.SetDefault("statement.iban", "")
	v.SetDefault("statement.host_info", "")

	// Output defaults
	v.SetDefault("output.commitment", "")
	v.SetDefault("output.checkpoints", "")
	v.SetDefault("output.checkpoints_format", "csv")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	// Validate log level
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	// Validate log format
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	// Validate checkpoint report format
	switch config.Output.CheckpointsFormat {
	case "csv", "yaml":
	default:
		return fmt.Errorf("invalid checkpoints format: %s (must be 'csv' or 'yaml')", config.Output.CheckpointsFormat)
	}

	return nil
}
