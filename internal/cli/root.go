// Package cli defines the Cobra commands of the creatives client.
// This file contains the root command and its persistent flags.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev" // set via ldflags at build time

// app carries the persistent flags.
type app struct {
	configPath string
	apiURL     string
	statePath  string
	verbose    bool
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "creatives",
		Short: "Command line client for the creatives platform",
		Long: `creatives signs you in to the AI creatives platform, keeps your
session between runs and shows your account, credits and plan.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $CREATIVES_CONFIG or ~/.creatives/config.yaml)")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL, overrides the config file")
	root.PersistentFlags().StringVar(&a.statePath, "state", "", "Session state database, overrides the config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newOAuthCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRefreshCmd(a),
		newWatchCmd(a),
		newAdminCmd(a),
	)
	return root
}

// Execute runs the root command. Called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
