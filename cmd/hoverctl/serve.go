package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/chart_hover/internal/api"
	"github.com/dgnsrekt/chart_hover/internal/browser"
	"github.com/dgnsrekt/chart_hover/internal/cdpcontrol"
	"github.com/dgnsrekt/chart_hover/internal/config"
	"github.com/dgnsrekt/chart_hover/internal/controller"
	"github.com/dgnsrekt/chart_hover/internal/journal"
	"github.com/dgnsrekt/chart_hover/internal/netutil"
	"github.com/dgnsrekt/chart_hover/internal/offline"
	"github.com/dgnsrekt/chart_hover/internal/relay"
	"github.com/dgnsrekt/chart_hover/internal/snapshot"
	"github.com/spf13/cobra"
)

var (
	serveMarkup string
	serveLaunch bool
	serveBind   string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hover engine with the control API",
		Long: `serve attaches to a Chromium page over CDP (or serves a markup file with
--markup), drives hover highlighting from pointer events and exposes the
control API with an SSE transition feed.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveMarkup, "markup", "", "serve a static SVG/HTML file instead of a browser page")
	cmd.Flags().BoolVar(&serveLaunch, "launch", false, "start Chromium on the configured start URL before attaching")
	cmd.Flags().StringVar(&serveBind, "bind", "", "control API address (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogger(cfg.LogLevel, cfg.LogFile, os.Stdout); err != nil {
		return fmt.Errorf("logger setup failed: %w", err)
	}
	if serveBind != "" {
		cfg.BindAddr = serveBind
	}

	slog.Info("hoverctl config loaded",
		"bind_addr", cfg.BindAddr,
		"cdp_url", cfg.CDPURL(),
		"tab_url_filter", cfg.TabURLFilter,
		"markup", serveMarkup,
		"text_radius", cfg.TextRadius,
		"vector_radius", cfg.VectorRadius,
		"polyline_proximity", cfg.PolylineProximity,
		"text_priority", cfg.TextPriority,
		"preview_dir", cfg.PreviewDir,
		"journal_dir", cfg.JournalDir,
		"config_file", cfg.ConfigFile,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		return fmt.Errorf("failed to select bind address: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, source, cleanup, err := openHost(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	snapStore, err := snapshot.NewStore(cfg.PreviewDir, snapshot.WithRetention(cfg.PreviewKeep))
	if err != nil {
		return fmt.Errorf("failed to create preview store: %w", err)
	}

	opts := controller.Options{
		Highlight:     cfg.Highlight(),
		RetryInterval: cfg.RetryInterval(),
		Source:        source,
	}
	if cfg.JournalDir != "" {
		jw := journal.New(cfg.JournalDir, journal.Options{})
		defer jw.Close()
		opts.Journal = jw
	}

	broker := relay.NewBroker()
	svc := controller.NewService(host, broker, snapStore, opts)
	srv := &http.Server{Addr: bindAddr, Handler: api.NewServer(svc, broker)}

	errCh := make(chan error, 2)
	go func() {
		errCh <- svc.Run(ctx)
	}()
	go func() {
		slog.Info("hoverctl listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		if errors.Is(runErr, context.Canceled) {
			runErr = nil
		} else {
			slog.Error("hoverctl stopped", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("hoverctl shutdown failed", "error", err)
	}
	return runErr
}

// openHost builds the static host for --markup, otherwise attaches to the
// browser, launching it first with --launch.
func openHost(ctx context.Context, cfg *config.Config) (controller.Host, string, func(), error) {
	if serveMarkup != "" {
		surface, err := offline.Open(serveMarkup, cfg.Selectors())
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to load markup: %w", err)
		}
		return controller.NewStaticHost(surface, serveMarkup), serveMarkup, func() {}, nil
	}

	var launcher *browser.Launcher
	if serveLaunch {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			ChartURL:   cfg.StartURL,
			ProfileDir: cfg.ProfileDir,
			WindowSize: cfg.WindowSize,
			Headless:   cfg.Headless,
		})
		if err := launcher.Launch(ctx); err != nil {
			return nil, "", nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	}

	client := cdpcontrol.NewClient(cfg.CDPURL(), cfg.TabURLFilter, cfg.EvalTimeout(), cfg.Selectors())
	if err := client.Connect(ctx); err != nil {
		if launcher != nil {
			launcher.Stop()
		}
		return nil, "", nil, fmt.Errorf("failed to connect CDP: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			slog.Debug("CDP client close failed", "error", err)
		}
		if launcher != nil {
			launcher.Stop()
		}
	}

	source := cfg.CDPURL()
	if pages, err := client.ListPages(ctx); err == nil && len(pages) > 0 {
		source = pages[0].URL
	}
	return client, source, cleanup, nil
}
