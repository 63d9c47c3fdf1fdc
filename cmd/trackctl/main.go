// Command trackctl reads and edits the driver tracker document from the
// shell, using the same back end and change events as the server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "trackctl"
)

func main() {
	a := &app{}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd(a).ExecuteContext(ctx)
	stop()

	if cerr := a.close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Driver earnings and expenses tracker",
		Long: `trackctl reads and edits the driver tracker store.

Months are 0-based (0 = January) like the stored document and the HTTP API.
The back end is selected with DATA_BACKEND and the usual environment
variables; a .env file in the working directory is honoured.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validFormat(a.output)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", formatTable, "Output format (table, json, yaml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		weeksCmd(a),
		dayCmd(a),
		weekCmd(a),
		expensesCmd(a),
		summaryCmd(a),
		reportCmd(a),
		exportCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}
