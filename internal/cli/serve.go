package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/worktimer/internal/adapters/feed"
	"github.com/emiliopalmerini/worktimer/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the options page and the page activity feed",
	Long: `Start the local server. Pages that load /shim.js stream their activity
over /ws and are tracked until they unload. The options page at /options
stores the operator identity.

Examples:
  worktimer serve              # Listen on the configured port
  worktimer serve --port 9000  # Listen on port 9000`,
	RunE: runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, 8765)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		cfg.Server.Port = servePort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	app, err := NewAppContext(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	runner := app.Runner()
	handler := feed.NewHandler(ctx, runner.Attach, feed.HandlerConfig{
		Selectors:      app.Extractors.Selectors(),
		TextLimit:      cfg.Extract.TextLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger.Named("feed"))

	server := web.NewServer(cfg.ServerAddr(), app.Identity, app.Hub, cfg.Teams, handler, logger.Named("web"))
	err = server.Start(ctx)

	// Pages see the cancelled context and send their unload events before
	// the delivery channel drains.
	cancel()
	handler.Wait()
	return err
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			logger.Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
