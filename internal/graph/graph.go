// Package graph assembles ffmpeg filter graphs with structurally unique pad
// labels.
//
// Labels are derived from (clip index, filter index, purpose), so compiling
// the same timeline twice yields byte-identical graphs. The Builder records
// every label it hands out and every label a chain consumes; allocating or
// consuming a label twice panics with a LabelCollisionError, because either
// is a compiler bug that would produce an invalid graph.
package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// LabelCollisionError reports a label allocated or consumed more than once.
type LabelCollisionError struct {
	Label  string
	Reason string
}

func (e *LabelCollisionError) Error() string {
	return fmt.Sprintf("filter graph label %q %s", e.Label, e.Reason)
}

// Builder accumulates filter-graph statements.
type Builder struct {
	allocated  map[string]struct{}
	consumed   map[string]struct{}
	order      []string
	statements []string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		allocated: make(map[string]struct{}),
		consumed:  make(map[string]struct{}),
	}
}

// Clip allocates a label scoped to a clip, e.g. "c2_stab".
func (b *Builder) Clip(clip int, purpose string) string {
	return b.claim("c" + strconv.Itoa(clip) + "_" + purpose)
}

// ClipFilter allocates a label scoped to one filter of a clip, e.g. "c2f1_fx".
func (b *Builder) ClipFilter(clip, filter int, purpose string) string {
	return b.claim("c" + strconv.Itoa(clip) + "f" + strconv.Itoa(filter) + "_" + purpose)
}

// Global allocates a label for post-composition stages, e.g. "g3_blend".
func (b *Builder) Global(index int, purpose string) string {
	return b.claim("g" + strconv.Itoa(index) + "_" + purpose)
}

// Named allocates a fixed label such as "vout".
func (b *Builder) Named(name string) string {
	return b.claim(name)
}

// Input references a stream of an input file. Input streams may be read
// any number of times and are not tracked.
func Input(index int, stream string) string {
	return strconv.Itoa(index) + ":" + stream
}

func (b *Builder) claim(label string) string {
	if _, exists := b.allocated[label]; exists {
		panic(&LabelCollisionError{Label: label, Reason: "allocated twice"})
	}
	b.allocated[label] = struct{}{}
	b.order = append(b.order, label)
	return label
}

// Chain appends "[in...]filter[out...]" and marks the inputs consumed.
func (b *Builder) Chain(inputs []string, filter string, outputs ...string) {
	var sb strings.Builder
	for _, in := range inputs {
		b.consume(in)
		sb.WriteString("[" + in + "]")
	}
	sb.WriteString(filter)
	for _, out := range outputs {
		if _, ok := b.allocated[out]; !ok {
			panic(&LabelCollisionError{Label: out, Reason: "written before allocation"})
		}
		sb.WriteString("[" + out + "]")
	}
	b.statements = append(b.statements, sb.String())
}

// Source appends a chain with no inputs, such as a color or anullsrc source.
func (b *Builder) Source(filter string, output string) {
	b.Chain(nil, filter, output)
}

func (b *Builder) consume(label string) {
	if _, tracked := b.allocated[label]; !tracked {
		return
	}
	if _, used := b.consumed[label]; used {
		panic(&LabelCollisionError{Label: label, Reason: "consumed twice"})
	}
	b.consumed[label] = struct{}{}
}

// Statements returns the chains in insertion order.
func (b *Builder) Statements() []string {
	out := make([]string, len(b.statements))
	copy(out, b.statements)
	return out
}

// Dangling lists allocated labels no chain consumed, in allocation order.
// A finished graph should leave only its mapped outputs dangling.
func (b *Builder) Dangling() []string {
	var out []string
	for _, label := range b.order {
		if _, used := b.consumed[label]; !used {
			out = append(out, label)
		}
	}
	return out
}

// Join renders a statement list as a -filter_complex argument.
func Join(statements ...[]string) string {
	var all []string
	for _, group := range statements {
		all = append(all, group...)
	}
	return strings.Join(all, ";")
}
