package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/revcache"
)

func TestLogrusLoggerMapsErrField(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := LogrusLogger{E: logrus.NewEntry(base)}

	cause := errors.New("boom")
	l.Error("provider requested the value it is computing", revcache.Fields{"name": "self", "err": cause})

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.ErrorLevel {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Data[logrus.ErrorKey] != cause || e.Data["name"] != "self" {
		t.Fatalf("data=%v", e.Data)
	}
}
