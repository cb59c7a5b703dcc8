// Package cli provides the CLI command structure for go_devcore.
package cli

import (
	"fmt"
	"strings"

	"github.com/micro-manager/micro-manager-sub007/internal/config"
	"github.com/micro-manager/micro-manager-sub007/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var cfgFile string

// NewRootCommand creates and returns the root command with all subcommands.
func NewRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "go_devcore",
		Short: "Device adapter host and utilities",
		Long: `Loads device adapter modules, manages the devices they create and
serves them to control clients over TCP.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Initialize configuration before running any command.
			if err := config.Initialize(cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			flags := cmd.Flags()
			if err := config.BindFlags(map[string]*pflag.Flag{
				"log.level":            flags.Lookup("log-level"),
				"log.format":           flags.Lookup("log-format"),
				"adapter.search_paths": flags.Lookup("adapter-path"),
				"server.host":          flags.Lookup("host"),
				"server.port":          flags.Lookup("port"),
				"hardware.config":      flags.Lookup("hardware"),
				"hardware.watch":       flags.Lookup("watch"),
			}); err != nil {
				return err
			}

			cfg := config.Get()

			return logging.InitLogger(
				strings.TrimSpace(strings.ToLower(cfg.Log.Level)),
				strings.TrimSpace(strings.ToLower(cfg.Log.Format)) == "human",
			)
		},
	}

	// Add persistent flags that affect all commands.
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default is $HOME/.go_devcore/config.yaml)")

	// Add global flags that can override config file settings.
	rootCmd.PersistentFlags().
		String("log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "logging format (human, json)")
	rootCmd.PersistentFlags().
		StringSlice("adapter-path", nil, "directories searched for adapter modules")

	// Register all commands.
	if err := RegisterCommands(rootCmd); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	return rootCmd, nil
}
