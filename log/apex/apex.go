// Package apex adapts an apex/log logger to revcache.Logger.
package apex

import (
	"github.com/apex/log"

	"github.com/unkn0wn-root/revcache"
)

var _ revcache.Logger = ApexLogger{}

// ApexLogger writes through L, usually log.Log or a *log.Logger.
type ApexLogger struct{ L log.Interface }

func (a ApexLogger) Debug(msg string, f revcache.Fields) { a.entry(f).Debug(msg) }
func (a ApexLogger) Info(msg string, f revcache.Fields)  { a.entry(f).Info(msg) }
func (a ApexLogger) Warn(msg string, f revcache.Fields)  { a.entry(f).Warn(msg) }
func (a ApexLogger) Error(msg string, f revcache.Fields) { a.entry(f).Error(msg) }

// entry maps an "err" error onto apex's "error" field.
func (a ApexLogger) entry(f revcache.Fields) *log.Entry {
	fields := make(log.Fields, len(f))
	var cause error
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			cause = err
			continue
		}
		fields[k] = v
	}
	e := a.L.WithFields(fields)
	if cause != nil {
		e = e.WithError(cause)
	}
	return e
}
