package utils

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", true)
	logger.Debug("hidden")
	logger.Info("visible", slog.String("k", "v"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered: %s", out)
	}
	if !strings.Contains(out, `"msg":"visible"`) || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("unexpected json log output: %s", out)
	}
}

func TestAppError(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewFieldError("decode incident", "cpu", "not an integer", base))

	if !IsAppError(err) {
		t.Fatalf("expected AppError in chain")
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected underlying error to unwrap")
	}
	if !strings.Contains(err.Error(), `field "cpu"`) {
		t.Fatalf("expected field in message: %s", err)
	}
	if got := NewAppError("op", "msg", nil).Error(); got != "op: msg" {
		t.Fatalf("unexpected message: %s", got)
	}
	if IsAppError(base) {
		t.Fatalf("plain error is not an AppError")
	}
}
