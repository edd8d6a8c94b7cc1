package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ryanreadbooks/primon/channel"
	"github.com/ryanreadbooks/primon/channel/adapter/whatsapp"
	"github.com/ryanreadbooks/primon/config"
	"github.com/ryanreadbooks/primon/dispatch"
	"github.com/ryanreadbooks/primon/greeting/gormstore"
	"github.com/ryanreadbooks/primon/lang"
	"github.com/ryanreadbooks/primon/media"
	"github.com/ryanreadbooks/primon/pkg/process"
)

const deviceName = "Primon"

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Connect to WhatsApp and start handling commands.",
	Long:  "Connect to WhatsApp and start handling commands. A QR code is shown when no device is paired yet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGateway(cmd.Context())
	},
}

var noticeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#ff6b6b")).
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

type Gateway struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *gormstore.Store
	janitor    *media.Janitor
	dispatcher *dispatch.Dispatcher
	supervisor *channel.Supervisor
}

func initGateway(cfg config.Config, logger *slog.Logger) (*Gateway, error) {
	strings, err := lang.Load(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to load language: %w", err)
	}

	if err := os.MkdirAll(cfg.Media.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	store, err := gormstore.Open(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open greeting store: %w", err)
	}

	fetcher := media.NewFetcher(media.Options{
		Timeout:  cfg.Media.Timeout,
		MaxBytes: cfg.Media.MaxBytes,
		Logger:   logger,
	})

	dispatcher, err := dispatch.New(dispatch.Options{
		Prefixes:   cfg.Handler,
		Sudo:       cfg.Sudo,
		Strings:    strings,
		Store:      store,
		Fetcher:    fetcher,
		ScratchDir: cfg.Media.Dir,
		Workers:    cfg.Workers,
		Logger:     logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	supervisor := channel.NewSupervisor(channel.SupervisorOptions{
		Factory: whatsapp.NewFactory(whatsapp.Options{
			StorePath:  cfg.Session.StorePath,
			DeviceName: deviceName,
			Logger:     logger,
		}),
		Serve: dispatcher.Serve,
		Restart: channel.RestartPolicy{
			Initial:     cfg.Session.Backoff.Initial,
			Max:         cfg.Session.Backoff.Max,
			Multiplier:  cfg.Session.Backoff.Multiplier,
			StableAfter: cfg.Session.StableAfter,
		},
		EraseGlobs: cfg.Session.EraseGlobs,
		Logger:     logger,
	})
	supervisor.OnStateChange(dispatcher.OnStateChange)
	supervisor.OnStateChange(func(state channel.State, reason channel.DisconnectReason) {
		logger.Info("session state", "state", state.String(), "reason", reason.String())
	})

	return &Gateway{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		janitor:    media.NewJanitor(cfg.Media.Dir, cfg.Media.MaxAge, logger),
		dispatcher: dispatcher,
		supervisor: supervisor,
	}, nil
}

func runGateway(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := cfg.Logging.Install(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	gateway, err := initGateway(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init gateway: %w", err)
	}

	if wg := process.GetRootWaitGroup(ctx); wg != nil {
		wg.Add(1)
		defer wg.Done()
	}

	return gateway.run(ctx)
}

func (g *Gateway) run(ctx context.Context) error {
	defer g.close()

	if g.cfg.Media.CleanupSchedule != "" {
		if err := g.janitor.Start(g.cfg.Media.CleanupSchedule); err != nil {
			return err
		}
	}

	g.logger.Info("primon started", "prefixes", g.cfg.Handler, "language", g.cfg.Language)
	err := g.supervisor.Run(ctx)
	g.dispatcher.Wait()

	switch {
	case errors.Is(err, channel.ErrLoggedOut):
		fmt.Fprintln(os.Stderr, noticeStyle.Render("The WhatsApp session was logged out.\nRun `primon start` again to pair a new device."))
		return err
	case err != nil:
		return fmt.Errorf("session terminated: %w", err)
	}

	g.logger.Info("primon stopped")
	return nil
}

func (g *Gateway) close() {
	g.janitor.Stop()
	g.dispatcher.Close()
	if err := g.store.Close(); err != nil {
		g.logger.Warn("failed to close greeting store", "error", err)
	}
}
