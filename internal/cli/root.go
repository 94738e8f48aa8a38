// Package cli implements scholarctl, the operator command line for scholarops.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"scholarops/internal/platform/config"
	"scholarops/internal/platform/logger"
)

var (
	flagEnvFile   string
	flagLogLevel  string
	flagLogFormat string

	log *slog.Logger
	cfg config.Config
)

// NewRootCmd creates the root cobra command for scholarctl.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scholarctl",
		Short: "Operate the scholarship application service",
		Long:  "scholarctl migrates the database, inspects interviewer agendas and runs endorsement batches.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flagEnvFile)
			if err != nil {
				return err
			}
			cfg = loaded
			log = logger.NewWithWriter(flagLogLevel, flagLogFormat, os.Stderr)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Env file read before the environment")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newMigrateCmd(),
		newAgendaCmd(),
		newEndorseCmd(),
	)
	return root
}
