package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mmx233/lptf/config"
	"github.com/Mmx233/lptf/remote"
	"github.com/Mmx233/lptf/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Start server",
		Args:  cobra.NoArgs,
		RunE:  runServer,
	}
)

func runServer(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "server-cmd").Logger()

	// Load configuration
	path := configPath()
	logger.Info().Str("config", path).Msg("loading configuration")
	cfg, err := config.LoadServerConfig(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var facility server.Facility
	if cfg.Remote.Enabled {
		ctrl := remote.New(cfg.Remote)
		defer ctrl.Close()
		facility = ctrl
		logger.Warn().Bool("allow_exec", cfg.Remote.AllowExec).Msg("remote control enabled")
	}

	logger.Info().Msg("starting LPTF server")
	if err := server.Serve(ctx, cfg, facility); err != nil {
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
