package cli

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/worktimer/internal/config"
	"github.com/emiliopalmerini/worktimer/internal/util"
)

var (
	configPath string
	debug      bool

	cfg    *config.Config
	logger hclog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "worktimer",
	Short: "Per-item active and idle time tracker for browser pages",
	Long: `worktimer watches the pages you work in, detects which work item is open,
and reports how long you actively engaged with it versus how long it sat idle.

Pages are tracked either through the injected feed script (serve) or by
driving a Chrome tab over the DevTools protocol (attach).`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/worktimer/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(identityCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := util.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if debug {
		c.Debug = true
	}
	cfg = c
	logger = newLogger(cmd, c.Debug)
	logger.Debug("config loaded", "path", path, "endpoint", c.Endpoint)
	return nil
}

func newLogger(cmd *cobra.Command, debug bool) hclog.Logger {
	level := hclog.Info
	if debug {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "worktimer",
		Level:  level,
		Output: cmd.ErrOrStderr(),
		Color:  hclog.AutoColor,
	})
}
