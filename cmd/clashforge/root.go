package main

import (
	"io"
	"time"

	"github.com/John-Robertt/clashforge/internal/logging"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	logLevel  string
	logFormat string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "clashforge",
		Short:         "Compile proxy lists and rule selections into Clash configs",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(g.logLevel, logging.Format(g.logFormat), stderr)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "console", "log format (console, json)")
	root.PersistentFlags().Duration("fetch-timeout", 15*time.Second, "timeout for inputs given as http(s) URLs")

	root.AddCommand(
		newBuildCmd(),
		newListCmd(),
		newCatalogCmd(),
		newServeCmd(),
		newHealthcheckCmd(),
	)
	return root
}
