package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mindful-paint/internal/config"
	"mindful-paint/internal/logger"
	"mindful-paint/internal/ui"
	"mindful-paint/internal/version"
)

var flagConfig string

// rootCmd runs the relay server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "mindful-paint",
	Short: "Collaborative drawing canvas with a room-scoped websocket relay",
	Long: `Mindful Paint serves a shared drawing canvas. Browsers and headless clients join
a room and every stroke, shape and clear is relayed to the other members.

Run without a subcommand to start the relay server.`,
	Version: version.Version,
	RunE:    runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	addServeFlags(rootCmd)

	rootCmd.AddCommand(serveCmd, drawCmd, replayCmd, roomsCmd)
}

// Execute runs the command line. It is called by main.main.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) {
	backend, _ := logger.ParseBackend(cfg.Logging.Backend)
	v := cfg.Logging.Version
	if v == "" {
		v = version.Version
	}
	logger.Init(logger.Config{
		Service:   cfg.Logging.Service,
		Version:   v,
		Env:       logger.Env(strings.ToLower(cfg.Logging.Env)),
		Backend:   backend,
		Debug:     cfg.Logging.Debug,
		AddSource: cfg.Logging.AddSource,
	})
}

// httpBase returns server as an http(s) base URL without a trailing slash.
func httpBase(server string) string {
	switch {
	case strings.HasPrefix(server, "ws://"):
		server = "http://" + strings.TrimPrefix(server, "ws://")
	case strings.HasPrefix(server, "wss://"):
		server = "https://" + strings.TrimPrefix(server, "wss://")
	case !strings.Contains(server, "://"):
		server = "http://" + server
	}
	return strings.TrimRight(server, "/")
}
