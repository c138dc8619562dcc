package cli

import (
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/worktimer/internal/adapters/browser"
	"github.com/emiliopalmerini/worktimer/internal/ports"
	"github.com/emiliopalmerini/worktimer/internal/web"
)

var (
	attachDebuggerURL string
	attachURL         string
	attachOptions     bool
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Track a Chrome tab over the DevTools protocol",
	Long: `Attach to a Chrome tab and track it. Each navigation in the tab starts a
new page session, the way a content script is re-injected on every load.
Tracking stops when the tab is closed or on interrupt.

Without --debugger-url a visible Chrome is launched.

Examples:
  worktimer attach --debugger-url ws://127.0.0.1:9222/devtools/browser/<id>
  worktimer attach --url https://crm.example.com/case?SR=7123456`,
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachDebuggerURL, "debugger-url", "", "DevTools websocket URL of a running Chrome")
	attachCmd.Flags().StringVar(&attachURL, "url", "", "Open this URL in a new tab instead of using the first open tab")
	attachCmd.Flags().BoolVar(&attachOptions, "options", true, "Also serve the options page so identity changes reach the tab")
}

func runAttach(cmd *cobra.Command, args []string) error {
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

	if attachOptions {
		server := web.NewServer(cfg.ServerAddr(), app.Identity, app.Hub, cfg.Teams, nil, logger.Named("web"))
		go func() {
			if err := server.Start(ctx); err != nil {
				logger.Warn("options server stopped", "error", err)
			}
		}()
	}

	b, closeBrowser, err := browser.Connect(ctx, attachDebuggerURL)
	if err != nil {
		return err
	}
	defer closeBrowser()

	target, err := browser.Target(b, attachURL)
	if err != nil {
		return err
	}

	runner := app.Runner()
	tabLog := logger.Named("browser")
	for {
		if err := target.Context(ctx).WaitLoad(); err != nil {
			tabLog.Debug("wait for load failed", "error", err)
		}

		var page *browser.Page
		err := runner.Attach(ctx, func(rec ports.InteractionRecorder) (ports.Page, error) {
			p, err := browser.Open(ctx, b, target, rec, cfg.Extract.TextLimit, tabLog)
			if err != nil {
				return nil, err
			}
			page = p
			return p, nil
		})
		if page != nil {
			_ = page.Close()
		}
		if err != nil {
			return err
		}

		switch {
		case ctx.Err() != nil:
			return nil
		case page.Gone():
			logger.Info("tab closed")
			return nil
		}
		tabLog.Debug("page navigated, reattaching")
	}
}
