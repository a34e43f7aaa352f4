package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newBufferLogger(t *testing.T, warnStack bool) (*Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("STOREFRONT_LOG_FORMAT", "json")
	t.Setenv("LOG_FORMAT", "json")
	buf := &bytes.Buffer{}
	return New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: warnStack}), buf
}

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	log, buf := newBufferLogger(t, false)

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-1")
	ctx = log.WithHandoffToken(ctx, "tok-1")

	log.Error(ctx, "boom", errors.New("boom"))

	for _, field := range []string{`"request_id":"req-123"`, `"order_id":"order-1"`, `"handoff_token":"tok-1"`, `"stack"`} {
		if !bytes.Contains(buf.Bytes(), []byte(field)) {
			t.Fatalf("expected %s in entry=%s", field, buf.String())
		}
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	log, buf := newBufferLogger(t, true)
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack when warn stack enabled: %s", buf.String())
	}

	quiet, quietBuf := newBufferLogger(t, false)
	quiet.Warn(context.Background(), "warny")
	if bytes.Contains(quietBuf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("unexpected stack when warn stack disabled: %s", quietBuf.String())
	}
}

func TestLoggerNilContextFallsBackToBase(t *testing.T) {
	log, buf := newBufferLogger(t, false)
	//nolint:staticcheck // nil context is tolerated by the logger
	log.Info(nil, "hello")
	if !bytes.Contains(buf.Bytes(), []byte(`"service":"test"`)) {
		t.Fatalf("expected service field: %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" WARN "); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}

func TestLoggerWithSessionAndSortedFields(t *testing.T) {
	log, buf := newBufferLogger(t, false)

	ctx := log.WithSession(context.Background(), "user-1", "sess-1")
	ctx = log.WithFields(ctx, map[string]any{"zeta": 1, "alpha": 2})
	log.Info(ctx, "hello")

	line := buf.String()
	for _, field := range []string{`"user_id":"user-1"`, `"session_id":"sess-1"`} {
		if !strings.Contains(line, field) {
			t.Fatalf("expected %s in entry=%s", field, line)
		}
	}
	if strings.Index(line, `"alpha"`) > strings.Index(line, `"zeta"`) {
		t.Fatalf("expected fields in key order: %s", line)
	}
}

func TestLoggerFieldsDoNotLeakBetweenContexts(t *testing.T) {
	log, buf := newBufferLogger(t, false)

	base := log.WithRequestID(context.Background(), "req-1")
	_ = log.WithOrderID(base, "order-9")
	log.Info(base, "only request")

	if strings.Contains(buf.String(), "order-9") {
		t.Fatalf("derived context field leaked into parent: %s", buf.String())
	}
}
