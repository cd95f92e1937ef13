// Package transform provides clone-on-write rewrite passes over parsed
// WGSL programs. Transforms communicate through a DataMap keyed by Go
// type, so each payload is declared once and fetched without casts at the
// call site.
package transform

import (
	"fmt"
	"reflect"

	"github.com/gogpu/wgslc/wgsl"
)

// Transform rewrites a Program. Apply receives a private clone and may
// mutate it freely. Returning a nil Program means the transform does not
// apply to this input; the caller forwards the original unchanged.
type Transform interface {
	Apply(p *wgsl.Program, in DataMap, out *DataMap) (*wgsl.Program, error)
}

// DataMap carries typed payloads into and out of transforms. The zero
// value is an empty map.
type DataMap struct {
	values map[reflect.Type]any
}

// Put stores a payload, replacing any existing payload of the same type.
func Put[T any](d *DataMap, value T) {
	if d.values == nil {
		d.values = make(map[reflect.Type]any)
	}
	d.values[reflect.TypeOf((*T)(nil)).Elem()] = value
}

// Get fetches the payload of type T, if present.
func Get[T any](d DataMap) (T, bool) {
	v, ok := d.values[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

func (d *DataMap) merge(other DataMap) {
	for k, v := range other.values {
		if d.values == nil {
			d.values = make(map[reflect.Type]any)
		}
		d.values[k] = v
	}
}

// Output is the result of running one or more transforms.
type Output struct {
	Program *wgsl.Program
	Data    DataMap
}

// Run applies a single transform to a clone of p. The input program is
// never mutated; when the transform skips, the original program is
// returned as-is.
func Run(t Transform, p *wgsl.Program, in DataMap) (Output, error) {
	clone := p.Clone()
	var out DataMap
	result, err := t.Apply(clone, in, &out)
	if err != nil {
		return Output{}, err
	}
	if result == nil {
		result = p
	}
	return Output{Program: result, Data: out}, nil
}

// Manager applies an ordered list of transforms, threading each produced
// program into the next. Programs are re-resolved between transforms; the
// chain stops early when a produced program has error diagnostics, and the
// partial output is returned for inspection.
type Manager struct {
	transforms []Transform
}

// Append adds transforms to the end of the chain.
func (m *Manager) Append(ts ...Transform) {
	m.transforms = append(m.transforms, ts...)
}

// Run applies the chain to p. On failure the returned Output still holds
// the last good program, so callers can render partial results alongside
// the error.
func (m *Manager) Run(p *wgsl.Program, in DataMap) (Output, error) {
	var data DataMap
	data.merge(in)

	current := p
	for _, t := range m.transforms {
		out, err := Run(t, current, data)
		if err != nil {
			return Output{Program: current, Data: data}, err
		}
		data.merge(out.Data)
		if out.Program != current && !out.Program.StructurallyValid() {
			return Output{Program: current, Data: data},
				fmt.Errorf("transform %T produced a structurally invalid program", t)
		}
		current = out.Program
		if current.Sem == nil {
			wgsl.Resolve(current)
		}
		if current.Diagnostics.HasErrors() {
			break
		}
	}
	return Output{Program: current, Data: data}, nil
}
