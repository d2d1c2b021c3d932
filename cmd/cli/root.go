package cli

import (
	"fmt"
	"os"

	"github.com/flowbaker/misoca-monthly/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "misoca-monthly",
		Short: "Monthly Misoca invoice duplicator",
		Long: `misoca-monthly copies a source invoice in Misoca once a month with this month's
issue date, next month's due date and an updated subject line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("env-file", "", "Env file to load (default $ENV_FILE or .env)")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewSetupCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and applies the log level from --debug or LOG_LEVEL
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	if !debug {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown LOG_LEVEL, using info")
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
	}

	return cfg, nil
}
