package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/carved4/kvwalk/internal/audit"
	"github.com/carved4/kvwalk/internal/azcli"
	"github.com/carved4/kvwalk/internal/config"
	"github.com/carved4/kvwalk/internal/ui"
)

var version = "dev"

const (
	exitOK = iota
	exitFailure
	exitAuditFailure
)

type options struct {
	config  string
	verbose bool
	logDir  string
	timeout time.Duration
	debug   int
}

func main() {
	os.Exit(execute())
}

func execute() int {
	var opts options
	code := exitOK

	rootCmd := &cobra.Command{
		Use:   "kvwalk",
		Short: "kvwalk walks Azure Key Vaults and records every revealed secret",
		Long: "kvwalk logs in to Azure with a service principal, browses key vaults and secret names,\n" +
			"reveals values on request and keeps an operational log and a credential-exposure log.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &opts)
			if err != nil {
				return err
			}
			stdr.SetVerbosity(opts.debug)
			log := stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags))
			code = exitCode(run(cmd.Context(), cfg, log))
			return nil
		},
	}
	rootCmd.Flags().StringVar(&opts.config, "config", "", "config file (default ~/.kvwalk/config.yaml or $"+config.EnvConfig+")")
	rootCmd.Flags().BoolVar(&opts.verbose, "verbose", false, "write secret values into the operational log")
	rootCmd.Flags().StringVar(&opts.logDir, "log-dir", "", "directory for the operational and exposure logs")
	rootCmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "timeout for each call to azure")
	rootCmd.Flags().IntVar(&opts.debug, "debug", 0, "diagnostic log verbosity on stderr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the kvwalk version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kvwalk %s\n", version)
		},
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		ui.PrintError("x", fmt.Sprintf("error: %v", err))
		return exitFailure
	}
	return code
}

// loadConfig reads the config file and applies flags the operator set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(config.Path(opts.config))
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = opts.logDir
	}
	if flags.Changed("timeout") {
		cfg.Timeout = config.Duration(opts.timeout)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, audit.ErrWrite):
		ui.PrintError("x", fmt.Sprintf("audit log unavailable, stopping: %v", err))
		return exitAuditFailure
	case errors.Is(err, azcli.ErrNotInstalled):
		ui.PrintError("x", "the azure cli (az) is required: https://learn.microsoft.com/cli/azure/install-azure-cli")
		return exitFailure
	default:
		ui.PrintError("x", fmt.Sprintf("error: %v", err))
		return exitFailure
	}
}
