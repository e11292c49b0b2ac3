// Package tasks keeps named build tasks bound to compile phases, persists
// them, and runs them through an external Runner before or after a compile.
package tasks

import (
	"fmt"
	"sort"
)

// Phase is the point of a build at which a task runs.
type Phase int

const (
	BeforeCompile Phase = iota
	AfterCompile
	BeforeRebuild
	AfterRebuild
)

// Phases lists every phase in display order.
var Phases = [...]Phase{BeforeCompile, AfterCompile, BeforeRebuild, AfterRebuild}

func (p Phase) String() string {
	switch p {
	case BeforeCompile:
		return "before_compile"
	case AfterCompile:
		return "after_compile"
	case BeforeRebuild:
		return "before_rebuild"
	case AfterRebuild:
		return "after_rebuild"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) valid() bool { return p >= 0 && int(p) < len(Phases) }

// Label is the human-readable phase name used in descriptions.
func (p Phase) Label() string {
	switch p {
	case BeforeCompile:
		return "Before Build"
	case AfterCompile:
		return "After Build"
	case BeforeRebuild:
		return "Before Rebuild"
	case AfterRebuild:
		return "After Rebuild"
	default:
		return p.String()
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("tasks: unknown phase %q", s)
}

// Task is one goal of one project file.
type Task struct {
	ProjectPath string `json:"project_path" yaml:"project_path" msgpack:"project_path" cbor:"project_path"`
	Goal        string `json:"goal" yaml:"goal" msgpack:"goal" cbor:"goal"`
}

// State is the persisted form of a Manager. Lists are sorted and free of
// duplicates when produced by Manager.State.
type State struct {
	BeforeCompile []Task `json:"before_compile,omitempty" yaml:"before_compile,omitempty" msgpack:"before_compile,omitempty" cbor:"before_compile,omitempty"`
	AfterCompile  []Task `json:"after_compile,omitempty" yaml:"after_compile,omitempty" msgpack:"after_compile,omitempty" cbor:"after_compile,omitempty"`
	BeforeRebuild []Task `json:"before_rebuild,omitempty" yaml:"before_rebuild,omitempty" msgpack:"before_rebuild,omitempty" cbor:"before_rebuild,omitempty"`
	AfterRebuild  []Task `json:"after_rebuild,omitempty" yaml:"after_rebuild,omitempty" msgpack:"after_rebuild,omitempty" cbor:"after_rebuild,omitempty"`
}

// Tasks returns the list for p.
func (s *State) Tasks(p Phase) []Task {
	switch p {
	case BeforeCompile:
		return s.BeforeCompile
	case AfterCompile:
		return s.AfterCompile
	case BeforeRebuild:
		return s.BeforeRebuild
	case AfterRebuild:
		return s.AfterRebuild
	}
	return nil
}

func (s *State) set(p Phase, ts []Task) {
	switch p {
	case BeforeCompile:
		s.BeforeCompile = ts
	case AfterCompile:
		s.AfterCompile = ts
	case BeforeRebuild:
		s.BeforeRebuild = ts
	case AfterRebuild:
		s.AfterRebuild = ts
	}
}

type taskSet map[Task]struct{}

func (ts taskSet) sorted() []Task {
	if len(ts) == 0 {
		return nil
	}
	out := make([]Task, 0, len(ts))
	for t := range ts {
		out = append(out, t)
	}
	sortTasks(out)
	return out
}

func sortTasks(ts []Task) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].ProjectPath != ts[j].ProjectPath {
			return ts[i].ProjectPath < ts[j].ProjectPath
		}
		return ts[i].Goal < ts[j].Goal
	})
}
