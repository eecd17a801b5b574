package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestInitStdTextOutput(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Config{
		Service: "demo",
		Version: "v0.0.1",
		Env:     EnvDev,
		Backend: BackendStd,
		Level:   slog.LevelDebug,
		Output:  &buf,
	})
	log.Info("hello world", Err(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "{") {
		t.Fatalf("expected text output, got JSON: %s", out)
	}
	for _, want := range []string{"hello world", "service=demo", "env=dev", "version=v0.0.1", "instance_id=", "err=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("%q missing from %s", want, out)
		}
	}
}

func TestInitZapJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{
		Service:          "demo",
		Version:          "1.2.3",
		Env:              EnvProd,
		Backend:          BackendZap,
		Level:            slog.LevelInfo,
		SampleInitial:    100000,
		SampleThereafter: 100000,
		Output:           &buf,
	})
	slog.Info("booted", slog.String("k", "v"))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected JSON line, got %s, err=%v", buf.String(), err)
	}
	if m["msg"] != "booted" || m["level"] != "INFO" {
		t.Errorf("msg=%v level=%v", m["msg"], m["level"])
	}
	if m["service"] != "demo" || m["env"] != "prod" || m["version"] != "1.2.3" {
		t.Errorf("attrs missing: %v", m)
	}
	if m["k"] != "v" {
		t.Errorf("custom field missing: %v", m["k"])
	}
}

func TestInitDefaultBackendFollowsEnv(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Env: EnvStage, Output: &buf}).Info("x")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("stage should default to zap JSON, got %s", buf.String())
	}
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Config{Env: EnvDev, Output: &buf})
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug logged at info level: %s", buf.String())
	}

	buf.Reset()
	log = Init(Config{Env: EnvDev, Debug: true, Output: &buf})
	log.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug flag did not lower the level")
	}
}

func TestDetectEnv(t *testing.T) {
	testCases := map[string]Env{
		"":           EnvDev,
		"stage":      EnvStage,
		"Production": EnvProd,
		"prod":       EnvProd,
		"preprod":    EnvStage,
	}
	for raw, want := range testCases {
		t.Setenv("APP_ENV", raw)
		if got := DetectEnv(); got != want {
			t.Errorf("APP_ENV=%q: got %q, want %q", raw, got, want)
		}
	}
}

func TestParseBackend(t *testing.T) {
	if b, ok := ParseBackend(" ZAP "); !ok || b != BackendZap {
		t.Errorf("got %q %v", b, ok)
	}
	if _, ok := ParseBackend("logrus"); ok {
		t.Error("unknown backend accepted")
	}
}
