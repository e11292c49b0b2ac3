// Package macro expands $Name$ placeholders against the file in context.
package macro

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// File is the file a macro is expanded for.
type File struct {
	Path string
}

// Name is the last path element.
func (f File) Name() string { return filepath.Base(f.Path) }

// DataContext carries what a macro may read. File is nil when no file is
// selected.
type DataContext struct {
	File *File
}

// Macro produces the replacement for its $Name$ placeholder. ok=false means
// the macro does not apply in dc.
type Macro interface {
	Name() string
	Description() string
	Expand(ctx context.Context, dc DataContext) (value string, ok bool, err error)
}

var placeholder = regexp.MustCompile(`\$([A-Za-z][A-Za-z0-9_]*)\$`)

// Registry holds macros by name.
type Registry struct {
	mu     sync.RWMutex
	macros map[string]Macro
}

func NewRegistry(ms ...Macro) (*Registry, error) {
	r := &Registry{macros: make(map[string]Macro, len(ms))}
	for _, m := range ms {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(m Macro) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.macros[m.Name()]; dup {
		return fmt.Errorf("macro: %q already registered", m.Name())
	}
	r.macros[m.Name()] = m
	return nil
}

func (r *Registry) Lookup(name string) (Macro, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.macros[name]
	return m, ok
}

// Names returns registered names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.macros))
	for n := range r.macros {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Expand replaces every $Name$ of a registered macro. A macro that does not
// apply expands to "". Unknown names are left untouched.
func (r *Registry) Expand(ctx context.Context, template string, dc DataContext) (string, error) {
	var (
		b    strings.Builder
		last int
	)
	for _, loc := range placeholder.FindAllStringSubmatchIndex(template, -1) {
		m, ok := r.Lookup(template[loc[2]:loc[3]])
		if !ok {
			continue
		}
		v, _, err := m.Expand(ctx, dc)
		if err != nil {
			return "", fmt.Errorf("macro %s: %w", m.Name(), err)
		}
		b.WriteString(template[last:loc[0]])
		b.WriteString(v)
		last = loc[1]
	}
	b.WriteString(template[last:])
	return b.String(), nil
}
