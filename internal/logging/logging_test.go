package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"err":     slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormats(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info", "json").Info("posted", "transaction_no", "INV-2024-000001")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"transaction_no":"INV-2024-000001"`) {
		t.Fatalf("unexpected json output: %s", buf.String())
	}
	buf.Reset()
	NewWithWriter(&buf, "info", "text").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level")
	}
}

func TestContextLogger(t *testing.T) {
	l := Discard()
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("expected stored logger")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
}
