// Package root contains the root command for the application
package root

import (
	"fmt"

	"fjacquet/camt-attest/internal/config"
	"fjacquet/camt-attest/internal/container"
	"fjacquet/camt-attest/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CommonFlags represents the flags that are common to all commands
type CommonFlags struct {
	Config    string
	LogLevel  string
	LogFormat string
}

var (
	// Log is the shared logger instance for commands. It is replaced by the
	// container logger once the configuration is loaded.
	Log = logging.NewLogrusAdapter("info", "text")

	// AppConfig is the configuration loaded for the running command.
	AppConfig *config.Config

	// AppContainer is the dependency container built for the running command.
	AppContainer *container.Container

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "camt-attest",
		Short: "Verify an EBICS statement download and commit to its CAMT.053 balances.",
		Long: `camt-attest verifies the bank signature of an EBICS response, decrypts its
order data and emits a compact commitment over the selected account's
CAMT.053 statements.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  initialize,
		PersistentPostRunE: finalize,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	// SharedFlags holds flags accessible to all commands
	SharedFlags = CommonFlags{}

	// ContainerOptions are applied whenever the container is built.
	ContainerOptions []container.Option
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVar(&SharedFlags.Config, "config", "", "Config file (default searches ./config.yaml, ./.camt-attest, $HOME/.camt-attest)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Log format (text or json)")

	BindFlag(Cmd, "log.level", "log-level")
	BindFlag(Cmd, "log.format", "log-format")
}

type binding struct {
	cmd       *cobra.Command
	key, name string
}

var bindings []binding

// BindFlag binds the flag name of cmd to a configuration key. The binding applies
// when cmd or one of its subcommands runs; flags left unset on the command line
// leave the key to the other configuration sources.
func BindFlag(cmd *cobra.Command, key, name string) {
	if cmd.Flags().Lookup(name) == nil && cmd.PersistentFlags().Lookup(name) == nil {
		panic(fmt.Sprintf("root: no flag %q on command %q", name, cmd.Name()))
	}
	bindings = append(bindings, binding{cmd: cmd, key: key, name: name})
}

// newViper returns a viper instance carrying the flag bindings of cmd's lineage.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	for _, b := range bindings {
		if !inLineage(cmd, b.cmd) {
			continue
		}
		flag := b.cmd.Flags().Lookup(b.name)
		if flag == nil {
			flag = b.cmd.PersistentFlags().Lookup(b.name)
		}
		if err := v.BindPFlag(b.key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", b.name, err)
		}
	}
	return v, nil
}

func inLineage(cmd, ancestor *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == ancestor {
			return true
		}
	}
	return false
}

func initialize(cmd *cobra.Command, _ []string) error {
	if _, err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v, err := newViper(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(v, SharedFlags.Config)
	if err != nil {
		return err
	}

	c, err := container.NewContainer(cfg, ContainerOptions...)
	if err != nil {
		return err
	}

	AppConfig = cfg
	AppContainer = c
	Log = c.GetLogger()
	Log.Debug("Command initialized", logging.Field{Key: "command", Value: cmd.Name()})
	return nil
}

// finalize releases the container once the command has succeeded.
func finalize(*cobra.Command, []string) error {
	if AppContainer == nil {
		return nil
	}
	return AppContainer.Close()
}
