package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mindful-paint/internal/canvas"
	"mindful-paint/internal/recording"
	"mindful-paint/internal/ui"
)

var flagReplayOut string

var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Render a recorded session to PNG",
	Long: `Render a recording made with "draw --record" onto a fresh canvas.

Examples:
  mindful-paint replay abc123.rec
  mindful-paint replay abc123.rec --out abc123.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd, args[0])
	},
}

func init() {
	replayCmd.Flags().StringVarP(&flagReplayOut, "out", "o", "replay.png", "PNG to write")
}

func runReplay(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	session, err := canvas.NewSession(canvas.Options{
		Width:        cfg.Canvas.Width,
		Height:       cfg.Canvas.Height,
		HistoryLimit: cfg.Canvas.HistoryLimit,
	})
	if err != nil {
		return err
	}

	stats, err := recording.Replay(f, session)
	if err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}
	if err := writePNG(session, flagReplayOut); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.ReplaySummaryView(ui.ReplaySummary{
		Source:   path,
		Applied:  stats.Applied,
		Rejected: stats.Rejected,
		Duration: stats.Duration.String(),
		Output:   flagReplayOut,
	}))
	return nil
}
