package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/balcaopos/balcao/internal/config"
	"github.com/balcaopos/balcao/internal/httpapi"
	"github.com/balcaopos/balcao/internal/store"
	"github.com/balcaopos/balcao/pkg/logger"
	"github.com/balcaopos/balcao/pkg/realtime"
	"github.com/balcaopos/balcao/pkg/syncer"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sync server",
		Long: `Start the HTTP and WebSocket server.

Example:
  balcaod serve
  balcaod serve --config /etc/balcao/balcao.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), rootOpts)
		},
	}
	return cmd
}

func runServer(ctx context.Context, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg, opts.Verbose)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := realtime.NewHub(realtime.WithHubLogger(log))
	defer hub.Shutdown()

	resolver := syncer.NewResolver(st)
	gateway := syncer.NewGateway(st, resolver,
		syncer.WithAnnouncer(hub),
		syncer.WithGatewayLogger(log))

	api := httpapi.NewServer(httpapi.Params{
		Gateway:     gateway,
		Hub:         hub,
		Aggregates:  st,
		Purger:      st,
		AdminToken:  cfg.AdminToken,
		MetricsTTL:  cfg.MetricsTTL,
		SendTimeout: cfg.SendTimeout,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("db", cfg.DBPath).Msg("balcaod listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func buildLogger(cfg config.Config, verbose bool) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	build := logger.New().Level(level)
	if cfg.LogPath != "" {
		build = build.FromPath(cfg.LogPath)
	}
	return build.Make()
}
