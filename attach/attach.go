// Package attach groups local processes for an attach-to-process chooser.
package attach

import (
	"sort"
	"strconv"
)

// ProcessInfo describes one attachable process.
type ProcessInfo struct {
	PID            int
	ExecutableName string
	// ExecutableDisplayName overrides ExecutableName for display when set.
	ExecutableDisplayName string
	CommandLine           string
}

// DisplayName is the name shown for the executable.
func (p ProcessInfo) DisplayName() string {
	if p.ExecutableDisplayName != "" {
		return p.ExecutableDisplayName
	}
	return p.ExecutableName
}

// Group decides how a set of processes is titled and rendered. Groups sort
// by Order, then Name.
type Group interface {
	Order() int
	Name() string
	ItemDisplayText(p ProcessInfo) string
	// ItemDescription returns ok=false when the item has no description.
	ItemDescription(p ProcessInfo) (desc string, ok bool)
}

type defaultLocal struct{}

// DefaultLocal is the untitled group for plain local processes.
var DefaultLocal Group = defaultLocal{}

func (defaultLocal) Order() int                                 { return 0 }
func (defaultLocal) Name() string                               { return "" }
func (defaultLocal) ItemDisplayText(p ProcessInfo) string       { return p.DisplayName() }
func (defaultLocal) ItemDescription(ProcessInfo) (string, bool) { return "", false }

// Item is a process offered under a group.
type Item struct {
	Group Group
	Info  ProcessInfo
}

// Row is one rendered item.
type Row struct {
	Info        ProcessInfo
	Text        string
	Description string // empty when the group gave none
}

// Section is one titled block of rows.
type Section struct {
	Order int
	Name  string
	Rows  []Row
}

// Arrange buckets items by group (order and name) and sorts sections by order
// then name and rows by display text then PID. A nil Group means DefaultLocal.
func Arrange(items []Item) []Section {
	type key struct {
		order int
		name  string
	}
	idx := map[key]int{}
	var out []Section
	for _, it := range items {
		g := it.Group
		if g == nil {
			g = DefaultLocal
		}
		k := key{g.Order(), g.Name()}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Section{Order: k.order, Name: k.name})
		}
		row := Row{Info: it.Info, Text: g.ItemDisplayText(it.Info)}
		if d, ok := g.ItemDescription(it.Info); ok {
			row.Description = d
		}
		out[i].Rows = append(out[i].Rows, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	for _, s := range out {
		rows := s.Rows
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Text != rows[j].Text {
				return rows[i].Text < rows[j].Text
			}
			return rows[i].Info.PID < rows[j].Info.PID
		})
	}
	return out
}

// String renders a row as "text (pid)".
func (r Row) String() string {
	return r.Text + " (" + strconv.Itoa(r.Info.PID) + ")"
}
