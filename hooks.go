package revcache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The engine calls them on hot paths; key is nil for unparameterized values.
type Hooks interface {
	// A read was served from an up-to-date slot.
	Hit(name string)

	// The provider ran and its result was published.
	// deps is the number of stamps captured (0 for always/never slots).
	Recomputed(name string, key any, deps int, took time.Duration)

	// The provider returned an error; the slot was left untouched.
	ProviderFailed(name string, key any, err error)

	// A provider asked for the slot it is computing.
	Reentrant(name string, key any)

	// Reading a dependency stamp failed. During validation the slot is
	// treated as stale; during capture the value is returned uncached.
	StampError(name string, err error)

	// A keyed entry was dropped by the table bound.
	Evicted(name string, key any)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                                 {}
func (NopHooks) Recomputed(string, any, int, time.Duration) {}
func (NopHooks) ProviderFailed(string, any, error)          {}
func (NopHooks) Reentrant(string, any)                      {}
func (NopHooks) StampError(string, error)                   {}
func (NopHooks) Evicted(string, any)                        {}
