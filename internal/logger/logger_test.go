package logger

import (
	"bytes"
	"strings"
	"testing"
)

func bufferConfig(buf *bytes.Buffer) Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
		Outputs: []OutputConfig{
			{Type: OutputStderr, Writer: buf},
		},
	}
}

func TestLogger_InitAndGet(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Init(bufferConfig(buf)); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Shutdown()

	Get().Info("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("log output missing message: %s", buf.String())
	}
}

func TestLogger_InitTwice(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Init(bufferConfig(buf)); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Shutdown()

	if err := Init(bufferConfig(buf)); err == nil {
		t.Error("second Init() should fail")
	}
}

func TestLogger_NullLogger(t *testing.T) {
	Shutdown() // make sure nothing is installed

	logger := Get()
	if _, ok := logger.(*NullLogger); !ok {
		t.Fatalf("expected NullLogger before Init, got %T", logger)
	}
	logger.Info("should not crash")
	logger.With("k", "v").Error("should not crash")
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(bufferConfig(buf))
	defer Shutdown()

	With("component", "test").Info("message")

	if !strings.Contains(buf.String(), "component=test") {
		t.Errorf("output missing context: %s", buf.String())
	}
}

func TestLogger_ForRun(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Init(bufferConfig(buf)); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Shutdown()

	ForRun("run-1").With(KeyDirectory, "/data").Info("scanned")

	output := buf.String()
	if !strings.Contains(output, "run_id=run-1") || !strings.Contains(output, "directory=/data") {
		t.Errorf("run logger missing context: %s", output)
	}
}

func TestLogger_Shutdown(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(bufferConfig(buf))
	Get().Info("before shutdown")

	if err := Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
	if err := Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	// Second call is a no-op
	if err := Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON {
		t.Error("ParseFormat(JSON) should be FormatJSON")
	}
	if ParseFormat("whatever") != FormatText {
		t.Error("unknown formats should fall back to text")
	}
}
