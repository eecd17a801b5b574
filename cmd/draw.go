package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mindful-paint/internal/canvas"
	"mindful-paint/internal/client"
	"mindful-paint/internal/gesture"
	"mindful-paint/internal/recording"
	"mindful-paint/internal/ui"
)

var (
	flagServer    string
	flagRoom      string
	flagCreate    bool
	flagRecord    string
	flagOut       string
	flagZen       bool
	flagBreathing bool
	flagDuration  time.Duration
	flagScript    string
)

var drawCmd = &cobra.Command{
	Use:     "draw",
	Aliases: []string{"d"},
	Short:   "Join a room and render it headlessly",
	Long: `Join a room as a headless canvas. Every stroke, shape and clear from the other
members is rendered; on exit the canvas is written as a PNG.

Examples:
  mindful-paint draw --room abc123
  mindful-paint draw --create --zen --out calm.png
  mindful-paint draw --server http://paint.local:3000 --room abc123 --record abc123.rec
  mindful-paint draw --room abc123 --script strokes.yaml --duration 10s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagRoom == "" && !flagCreate {
			return errors.New("either --room or --create is required")
		}
		return runDraw(cmd.Context())
	},
}

func init() {
	drawCmd.Flags().StringVarP(&flagServer, "server", "s", "http://localhost:3000", "relay server address")
	drawCmd.Flags().StringVarP(&flagRoom, "room", "r", "", "room to join")
	drawCmd.Flags().BoolVar(&flagCreate, "create", false, "create a new room")
	drawCmd.Flags().StringVar(&flagRecord, "record", "", "record received events to this file")
	drawCmd.Flags().StringVarP(&flagOut, "out", "o", "canvas.png", "PNG written on exit")
	drawCmd.Flags().BoolVar(&flagZen, "zen", false, "paint ambient zen dots")
	drawCmd.Flags().BoolVar(&flagBreathing, "breathing", false, "show the breathing guide")
	drawCmd.Flags().DurationVar(&flagDuration, "duration", 0, "leave after this long (0 waits for interrupt)")
	drawCmd.Flags().StringVar(&flagScript, "script", "", "YAML gesture script to draw after joining")
}

func runDraw(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogger(cfg)
	log := slog.Default()

	var script *gesture.Script
	if flagScript != "" {
		if script, err = gesture.Load(flagScript); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if flagDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, flagDuration)
		defer cancel()
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	c, err := client.Dial(ctx, flagServer, client.Options{
		SendBuffer:     cfg.Relay.SendBuffer,
		MaxMessageSize: cfg.Relay.MaxMessageSize,
		PingPeriod:     cfg.Relay.PingPeriod,
		Logger:         log,
	})
	stopSpinner()
	if err != nil {
		return err
	}
	defer c.Close()

	session, err := canvas.NewSession(canvas.Options{
		Width:        cfg.Canvas.Width,
		Height:       cfg.Canvas.Height,
		HistoryLimit: cfg.Canvas.HistoryLimit,
		Emitter:      c,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	opts := []client.HandlerOption{client.WithHandlerLogger(log)}
	if flagRecord != "" {
		f, err := os.Create(flagRecord)
		if err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		defer f.Close()
		opts = append(opts, client.WithRecorder(recording.NewWriter(f)))
	}
	handler := client.NewHandler(c, session, opts...)
	handler.OnError = func(reason string) { ui.PrintWarningf("relay: %s", reason) }

	roomID := flagRoom
	if flagCreate {
		roomID, err = session.CreateRoom()
	} else {
		err = session.JoinRoom(roomID)
	}
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	fmt.Println(ui.RoomBanner(roomID, httpBase(flagServer)+"/room/"+roomID))

	session.SetZen(flagZen)
	session.SetBreathing(flagBreathing)
	go session.RunAmbient(ctx)

	stopWaiting := func() {}
	if script == nil {
		stopWaiting = ui.RunWaitingSpinner("Waiting for other members...")
	}
	defer stopWaiting()
	handler.OnUserJoined = func(connID string) {
		stopWaiting()
		ui.PrintInfof("%s %s joined the room", ui.IconPeer, shortID(connID))
	}

	if script != nil {
		go func() {
			if err := script.Run(ctx, session); err != nil && ctx.Err() == nil {
				ui.PrintWarningf("script stopped: %v", err)
				return
			}
			if ctx.Err() == nil {
				ui.PrintSuccessf("%s script finished (%d steps)", ui.IconBrush, len(script.Steps))
			}
		}()
	}

	err = handler.Run(ctx)
	stopWaiting()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if err := writePNG(session, flagOut); err != nil {
		return err
	}
	applied, rejected := handler.Counts()
	ui.PrintSuccessf("Rendered %d events (%d rejected) to %s", applied, rejected, flagOut)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writePNG(session *canvas.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := session.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
