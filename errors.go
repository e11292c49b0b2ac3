package revcache

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderFailure matches every error returned because a provider failed.
	ErrProviderFailure = errors.New("revcache: provider failed")
	// ErrReentrantComputation reports a provider reading the slot it is computing.
	ErrReentrantComputation = errors.New("revcache: reentrant computation")
	// ErrInvalidConfiguration reports an engine that cannot work as configured.
	ErrInvalidConfiguration = errors.New("revcache: invalid configuration")
)

// ProviderError wraps a provider failure. The slot is left as it was.
type ProviderError struct {
	Name string // engine name
	Key  any    // parameter; nil for unparameterized values
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("revcache: %s[%v]: provider failed: %v", e.Name, e.Key, e.Err)
	}
	return fmt.Sprintf("revcache: %s: provider failed: %v", e.Name, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{ErrProviderFailure, e.Err}
}

// ReentrantError is returned when a provider, through the context it was
// given, asks for the value it is currently computing.
type ReentrantError struct {
	Name string
	Key  any
}

func (e *ReentrantError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("revcache: %s[%v]: value requested while it is being computed", e.Name, e.Key)
	}
	return fmt.Sprintf("revcache: %s: value requested while it is being computed", e.Name)
}

func (e *ReentrantError) Unwrap() error { return ErrReentrantComputation }

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...)
}
