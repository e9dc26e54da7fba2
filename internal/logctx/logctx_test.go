package logctx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithLoggerAndFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("run", "r1").Logger()

	ctx := WithLogger(context.Background(), logger)
	got := FromContext(ctx)
	got.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"run":"r1"`) {
		t.Errorf("expected run field, got: %s", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	log := FromContext(context.Background())
	log.Debug().Msg("should not panic")

	log = FromContext(nil) //nolint:staticcheck // nil context is part of the contract
	log.Debug().Msg("should not panic either")
}

func TestWithStr(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))

	ctx = WithStr(ctx, "file", "data/f1.csv.gz")
	log := FromContext(ctx)
	log.Info().Msg("processing")

	if !strings.Contains(buf.String(), `"file":"data/f1.csv.gz"`) {
		t.Errorf("expected file field, got: %s", buf.String())
	}
}
