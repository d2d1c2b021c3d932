package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/flowbaker/misoca-monthly/internal/initialization"
	"github.com/flowbaker/misoca-monthly/internal/setup"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Run the local OAuth callback server to obtain a refresh token",
		Long: `Setup prints the Misoca authorization URL and serves GET /callback on SETUP_ADDRESS.
After authorizing in a browser, copy refresh_token from the page into REFRESH_TOKEN.
Do not expose this server publicly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := cfg.ValidateForSetup(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps := initialization.NewContainer(cfg, initialization.ContainerOptions{}).BuildSetupDependencies()

			if err := setup.Serve(ctx, deps.App, deps.Address, deps.AuthorizeURL); err != nil {
				log.Error().Err(err).Msg("Setup server failed")
				return err
			}

			log.Info().Msg("Setup server stopped")
			return nil
		},
	}
}
