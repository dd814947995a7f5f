package logx_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/logx"
)

func TestJSONFormatterWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := logx.NewLogger(&logx.Config{Level: logx.LevelDebug, Format: logx.FormatJSON, Output: &buf})

	l.WithField("page", 3).WithError(errors.New("timeout")).Warn("page failed")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if got["level"] != "WARN" || got["message"] != "page failed" {
		t.Fatalf("unexpected entry: %v", got)
	}
	if got["page"] != float64(3) || got["error"] != "timeout" {
		t.Fatalf("fields missing: %v", got)
	}
}

func TestEntryWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	l := logx.NewLogger(&logx.Config{Level: logx.LevelInfo, Output: &buf})

	base := l.WithField("fingerprint", "abc")
	_ = base.WithField("page", 1)
	base.Info("done")

	line := buf.String()
	if !strings.Contains(line, "fingerprint=abc") || strings.Contains(line, "page=") {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := logx.NewLogger(&logx.Config{Level: logx.LevelWarn, Output: &buf})
	l.WithField("k", "v").Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered, got %q", buf.String())
	}
	l.SetLevel(logx.LevelOff)
	l.WithField("k", "v").Error("hidden")
	if buf.Len() != 0 {
		t.Fatalf("off should silence everything, got %q", buf.String())
	}
	if logx.ParseLevel("warning") != logx.LevelWarn {
		t.Fatal("ParseLevel(warning)")
	}
}
