package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestZerologLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	log.With("module", "sweeper").Warn(context.Background(), "purged", "count", 3)

	out := buf.String()
	for _, s := range []string{`"level":"warn"`, `"message":"purged"`, `"module":"sweeper"`, `"count":3`} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestZerologLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	log.Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered, got:\n%s", buf.String())
	}
}

func TestConsoleLogger_Readable(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, zerolog.DebugLevel)

	log.Info(context.Background(), "listening", "addr", ":3200")

	out := buf.String()
	if !strings.Contains(out, "listening") || !strings.Contains(out, "addr=:3200") {
		t.Fatalf("unexpected console output:\n%s", out)
	}
}

func TestWatermillAdapter_ForwardsToLogger(t *testing.T) {
	log, buf := newTestLogger(t)
	var adapter watermill.LoggerAdapter = NewWatermillAdapter(log)

	adapter.With(watermill.LogFields{"topic": "pairsync.events"}).Error("publish failed", errors.New("nats down"), nil)
	adapter.Trace("tick", watermill.LogFields{"n": 1})

	out := buf.String()
	for _, s := range []string{"level=ERROR", "topic=pairsync.events", `error="nats down"`, "level=DEBUG", "msg=tick"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}
