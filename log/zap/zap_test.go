package zap

import (
	"errors"
	"testing"

	"github.com/unkn0wn-root/revcache"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesSortedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := ZapLogger{L: zap.New(core)}

	l.Warn("stamp read failed", revcache.Fields{"name": "users", "err": errors.New("boom")})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.Message != "stamp read failed" {
		t.Fatalf("unexpected entry %+v", e.Entry)
	}
	if len(e.Context) != 2 || e.Context[0].Key != "err" || e.Context[1].Key != "name" {
		t.Fatalf("fields not sorted: %+v", e.Context)
	}
	if got := e.ContextMap()["name"]; got != "users" {
		t.Fatalf("name=%v", got)
	}
}
