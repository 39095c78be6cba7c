package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_UsesJSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "debug", Writer: &buf, Component: "engine", RunID: "run-1"})
	lg.Debug("boot", "k", "v")

	out := strings.TrimSpace(buf.String())
	if !strings.Contains(out, `"level":"DEBUG"`) {
		t.Fatalf("expected DEBUG level, got %s", out)
	}
	if !strings.Contains(out, `"component":"engine"`) {
		t.Fatalf("expected component field, got %s", out)
	}
	if !strings.Contains(out, `"run":"run-1"`) {
		t.Fatalf("expected run field, got %s", out)
	}
}

func TestNewLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "warn", Writer: &buf})
	lg.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info record leaked through warn level: %s", buf.String())
	}
	lg.Warn("loud")
	if !strings.Contains(buf.String(), `"msg":"loud"`) {
		t.Fatalf("expected warn record, got %s", buf.String())
	}
}

func TestNewLogger_GeneratesRunID(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(Options{Writer: &buf}).Info("x")
	if !strings.Contains(buf.String(), `"run":"`) || strings.Contains(buf.String(), `"run":""`) {
		t.Fatalf("expected generated run id, got %s", buf.String())
	}
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pomo.log")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString("{}\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
}
