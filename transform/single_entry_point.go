package transform

import (
	"fmt"

	"github.com/gogpu/wgslc/wgsl"
)

// EntryPointName selects the entry point SingleEntryPoint keeps.
type EntryPointName string

// SingleEntryPoint strips every entry point except the named one, along
// with helper functions and module variables only the removed entry
// points reached.
type SingleEntryPoint struct{}

func (SingleEntryPoint) Apply(p *wgsl.Program, in DataMap, out *DataMap) (*wgsl.Program, error) {
	name, ok := Get[EntryPointName](in)
	if !ok || name == "" {
		return nil, fmt.Errorf("no entry point name provided")
	}
	if p.Sem == nil {
		wgsl.Resolve(p)
	}
	if p.Diagnostics.HasErrors() {
		return nil, fmt.Errorf("cannot prune a program with errors")
	}
	sem := p.Sem

	var entry *wgsl.FunctionInfo
	for _, fi := range sem.Functions {
		if fi.IsEntryPoint() && fi.Decl.Name == string(name) {
			entry = fi
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("entry point %q not found", name)
	}

	// Keep the entry point and every function it transitively calls.
	keepFuncs := map[string]bool{string(name): true}
	for _, fi := range sem.Functions {
		for _, anc := range fi.AncestorEntryPoints {
			if anc.Name == string(name) {
				keepFuncs[fi.Decl.Name] = true
			}
		}
	}
	// RefGlobals is already transitive over the entry point's callees.
	keepVars := make(map[string]bool, len(entry.RefGlobals))
	for _, v := range entry.RefGlobals {
		keepVars[v.Name] = true
	}

	kept := p.Functions[:0]
	for _, f := range p.Functions {
		if keepFuncs[f.Name] {
			kept = append(kept, f)
		}
	}
	p.Functions = kept

	keptVars := p.GlobalVars[:0]
	for _, v := range p.GlobalVars {
		if keepVars[v.Name] {
			keptVars = append(keptVars, v)
		}
	}
	p.GlobalVars = keptVars

	p.Sem = nil
	return p, nil
}
