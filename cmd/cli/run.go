package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowbaker/misoca-monthly/internal/failure"
	"github.com/flowbaker/misoca-monthly/internal/initialization"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Duplicate the source invoice for the current month",
		Long: `Run refreshes the access token, fetches SOURCE_INVOICE_ID, and creates a copy dated
for the current month. The exit status reports the failure class:
  0 success, 1 unexpected, 2 configuration, 3 authentication, 4 Misoca API, 5 token persistence.`,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(failure.ExitCode(runJob(cmd)))
		},
	}
}

func runJob(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load config")
		return failure.NewError(failure.KindConfig, "load config", err)
	}

	if err := cfg.ValidateForJob(); err != nil {
		log.Error().Msg(err.Error())
		return failure.NewError(failure.KindConfig, "validate config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container := initialization.NewContainer(cfg, initialization.ContainerOptions{})

	deps, err := container.BuildJobDependencies(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build job dependencies")
		return err
	}

	if _, err := deps.Duplicator.Run(ctx); err != nil {
		return err
	}

	return nil
}
