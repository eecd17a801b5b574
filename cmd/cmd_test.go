package cmd

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"mindful-paint/internal/canvas"
	"mindful-paint/internal/client"
	"mindful-paint/internal/config"
	"mindful-paint/internal/protocol"
	"mindful-paint/internal/recording"
	"mindful-paint/internal/relay"
	"mindful-paint/internal/server"
)

func TestHTTPBase(t *testing.T) {
	testCases := map[string]string{
		"localhost:3000":          "http://localhost:3000",
		"http://host:3000/":       "http://host:3000",
		"ws://host:3000":          "http://host:3000",
		"wss://paint.example.com": "https://paint.example.com",
	}
	for in, want := range testCases {
		if got := httpBase(in); got != want {
			t.Errorf("httpBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	// flag values outlive a single Execute
	flagRoom, flagCreate, flagScript, flagRecord, flagDuration = "", false, "", "", 0
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRoomsCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rooms" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"id":"studio","members":["a","b"]}]`))
	}))
	defer ts.Close()

	out, err := run(t, "rooms", "--server", ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "studio") {
		t.Errorf("rooms output missing the room:\n%s", out)
	}
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	recPath := filepath.Join(dir, "session.rec")
	outPath := filepath.Join(dir, "out.png")

	f, err := os.Create(recPath)
	if err != nil {
		t.Fatal(err)
	}
	w := recording.NewWriter(f)
	for _, ev := range []protocol.DrawEvent{
		{RoomID: "r", X: 10, Y: 10, Color: "#000000", Width: 4, Tool: "pen", Stroke: "s"},
		{RoomID: "r", X: 90, Y: 90, Color: "#000000", Width: 4, Tool: "pen", Stroke: "s"},
	} {
		msg, err := protocol.NewMessage(protocol.EventDraw, ev)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Write(msg); err != nil {
			t.Fatal(err)
		}
	}
	f.Close()

	out, err := run(t, "replay", recPath, "--out", outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Applied") {
		t.Errorf("summary missing:\n%s", out)
	}

	pf, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer pf.Close()
	img, err := png.Decode(pf)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := img.At(50, 50).RGBA(); a == 0 {
		t.Error("replayed stroke missing from the PNG")
	}
}

func TestDrawRequiresRoom(t *testing.T) {
	if _, err := run(t, "draw"); err == nil {
		t.Error("expected an error without --room or --create")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDrawScriptReachesOtherMember(t *testing.T) {
	gin.SetMode(gin.TestMode)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	svc := relay.NewService(relay.WithLogger(quiet))
	srv, err := server.New(&cfg, svc, quiet)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	peer, err := client.Dial(ctx, ts.URL, client.Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()
	watcher, err := canvas.NewSession(canvas.Options{Emitter: peer, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	go client.NewHandler(peer, watcher, client.WithHandlerLogger(quiet)).Run(ctx)
	if err := watcher.JoinRoom("studio"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "watcher to join", func() bool { return len(svc.Members("studio")) == 1 })

	dir := t.TempDir()
	script := filepath.Join(dir, "strokes.yaml")
	body := `
steps:
  - tool: pen
    width: 6
    stroke: [[100, 100], [200, 100], [300, 100]]
  - tool: circle
    color: "#6C5CE7"
    stroke: [[400, 300], [450, 300]]
`
	if err := os.WriteFile(script, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = run(t, "draw",
		"--server", ts.URL,
		"--room", "studio",
		"--script", script,
		"--duration", "500ms",
		"--out", filepath.Join(dir, "drawer.png"),
	)
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, "scripted stroke", func() bool { return watcher.Strokes().RGBAAt(200, 100).A > 0 })
	waitFor(t, "scripted circle", func() bool { return watcher.Strokes().RGBAAt(400, 250).A > 0 })
}
