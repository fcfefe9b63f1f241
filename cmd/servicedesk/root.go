package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/servicedesk/internal/cli"
	"github.com/aretw0/servicedesk/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "servicedesk",
	Short: "Service desk assistant backed by ServiceNow",
	Long: `servicedesk collects the details of an incident, an incident status
request or a piece of feedback through a short conversation and runs the
matching action against ServiceNow (or a local simulation).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file (default servicedesk.yaml if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
}

// loadConfig reads the configuration named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// buildStack loads the configuration and wires every backend.
// Quiet commands log nothing unless --debug is set.
func buildStack(ctx context.Context, cmd *cobra.Command, quiet bool) (*cli.Stack, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Build(ctx, cfg, cli.NewLogger(cfg, debug, quiet))
}
