package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mindful-paint/internal/config"
	"mindful-paint/internal/logger"
	"mindful-paint/internal/relay"
	"mindful-paint/internal/server"
)

var (
	flagPort  int
	flagHost  string
	flagRedis string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Long: `Serve the drawing page and the websocket relay.

Examples:
  mindful-paint serve
  mindful-paint serve --port 8080
  mindful-paint serve --redis localhost:6379`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&flagPort, "port", "p", 0, "listen port (overrides config and PORT)")
	cmd.Flags().StringVar(&flagHost, "host", "", "listen host")
	cmd.Flags().StringVar(&flagRedis, "redis", "", "redis address for relaying between instances")
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flagPort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flagHost
	}
	if cmd.Flags().Changed("redis") {
		cfg.Relay.Redis.Addr = flagRedis
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}
	initLogger(cfg)
	log := slog.Default()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := []relay.Option{relay.WithLogger(log)}
	if cfg.Relay.Redis.Addr != "" {
		bus, err := relay.NewRedisBus(ctx, relay.RedisOptions{
			Addr:     cfg.Relay.Redis.Addr,
			Password: cfg.Relay.Redis.Password,
			DB:       cfg.Relay.Redis.DB,
			Prefix:   cfg.Relay.Redis.ChannelPrefix,
		}, log)
		if err != nil {
			return err
		}
		defer bus.Close()
		opts = append(opts, relay.WithBus(bus))
		log.Info("relaying between instances", "redis", cfg.Relay.Redis.Addr)
	}
	svc := relay.NewService(opts...)

	srv, err := server.New(cfg, svc, log)
	if err != nil {
		return err
	}

	busErr := make(chan error, 1)
	go func() { busErr <- svc.Run(ctx) }()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	cancel()
	if err := <-busErr; err != nil {
		log.Warn("relay bus stopped", logger.Err(err))
	}
	return nil
}
