// Package wgslc compiles WGSL (WebGPU Shading Language) source code into
// a typed intermediate representation plus reflection data.
//
// The pipeline is: lex → parse → resolve → transform → build IR →
// validate. Each stage accumulates diagnostics instead of stopping at the
// first problem, so a single compile reports as much as it can.
//
// Example:
//
//	result, err := wgslc.Compile(`
//	@vertex
//	fn main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
//	    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
//	}
//	`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	module := result.Module
package wgslc

import (
	"fmt"

	"github.com/gogpu/wgslc/diag"
	"github.com/gogpu/wgslc/ir"
	"github.com/gogpu/wgslc/transform"
	"github.com/gogpu/wgslc/wgsl"
)

// Options configures a compile.
type Options struct {
	// Overrides supplies values for pipeline-overridable constants,
	// keyed by override name.
	Overrides map[string]float64

	// EntryPoint, when set, strips every other entry point and the code
	// only they reach.
	EntryPoint string

	// CompactNames renames module-scope declarations (except entry
	// points) to short generated names. The mapping is reported in
	// Result.Renames.
	CompactNames bool

	// MaxParseErrors overrides the parse error cap. Zero keeps the
	// default.
	MaxParseErrors int
}

// Result is the output of a successful compile.
type Result struct {
	// Module is the validated IR.
	Module *ir.Module

	// Reflection describes the module's entry points and their resource
	// bindings.
	Reflection ModuleInfo

	// Diagnostics holds warnings and notes produced along the way. A
	// Result returned without error never contains error diagnostics.
	Diagnostics diag.List

	// Renames maps generated names back to source names when
	// Options.CompactNames is set.
	Renames map[string]string
}

// CompileError reports a failed compile and carries the full diagnostic
// batch.
type CompileError struct {
	Diagnostics diag.List
	Source      string
}

func (e *CompileError) Error() string {
	count := 0
	var first string
	for _, d := range e.Diagnostics {
		if d.Severity == diag.SeverityError {
			if count == 0 {
				first = fmt.Sprintf("%d:%d: %s", d.Span.Start.Line, d.Span.Start.Column, d.Message)
			}
			count++
		}
	}
	if count > 1 {
		return fmt.Sprintf("%s (and %d more errors)", first, count-1)
	}
	return first
}

// Format renders all diagnostics with source context lines.
func (e *CompileError) Format() string {
	return e.Diagnostics.FormatAll(e.Source)
}

// Compile compiles WGSL source with default options.
func Compile(source string) (*Result, error) {
	return CompileWithOptions(source, Options{})
}

// CompileWithOptions compiles WGSL source.
func CompileWithOptions(source string, opts Options) (*Result, error) {
	parser := wgsl.NewParser(wgsl.NewLexer(source).Tokenize())
	if opts.MaxParseErrors > 0 {
		parser.SetMaxErrors(opts.MaxParseErrors)
	}
	program := parser.Parse()
	if program.Diagnostics.HasErrors() {
		return nil, &CompileError{Diagnostics: program.Diagnostics, Source: source}
	}
	if !program.StructurallyValid() {
		panic("wgslc: parser produced a structurally invalid program")
	}

	wgsl.Resolve(program)
	if program.Diagnostics.HasErrors() {
		return nil, &CompileError{Diagnostics: program.Diagnostics, Source: source}
	}

	var manager transform.Manager
	var data transform.DataMap
	if len(opts.Overrides) > 0 || len(program.Overrides) > 0 {
		transform.Put(&data, transform.OverrideValues(opts.Overrides))
		manager.Append(transform.SubstituteOverrides{})
	}
	if opts.EntryPoint != "" {
		transform.Put(&data, transform.EntryPointName(opts.EntryPoint))
		manager.Append(transform.SingleEntryPoint{})
	}
	if opts.CompactNames {
		manager.Append(transform.Renamer{})
	}

	out, err := manager.Run(program, data)
	if err != nil {
		return nil, err
	}
	program = out.Program
	if program.Sem == nil {
		wgsl.Resolve(program)
	}
	if program.Diagnostics.HasErrors() {
		return nil, &CompileError{Diagnostics: program.Diagnostics, Source: source}
	}

	lowered, err := wgsl.BuildIRWithWarnings(program)
	if err != nil {
		return nil, err
	}
	module := lowered.Module
	for i := range module.Functions {
		ir.FoldConstants(&module.Functions[i])
	}

	validationErrors, err := ir.Validate(module)
	if err != nil {
		return nil, err
	}
	if len(validationErrors) > 0 {
		return nil, &validationErrors[0]
	}

	result := &Result{
		Module:      module,
		Reflection:  reflect(program),
		Diagnostics: program.Diagnostics,
	}
	for _, w := range lowered.Warnings {
		result.Diagnostics.AddWarning(w.Span, w.Message)
	}
	if renames, ok := transform.Get[transform.RenameData](out.Data); ok {
		result.Renames = renames
	}
	return result, nil
}

// ModuleInfo describes the compiled module for callers that set up
// pipelines and bind groups.
type ModuleInfo struct {
	EntryPoints []EntryPointInfo
}

// EntryPoint returns the info for a named entry point, or nil.
func (m *ModuleInfo) EntryPoint(name string) *EntryPointInfo {
	for i := range m.EntryPoints {
		if m.EntryPoints[i].Name == name {
			return &m.EntryPoints[i]
		}
	}
	return nil
}

// EntryPointInfo describes one entry point.
type EntryPointInfo struct {
	Name          string
	Stage         ir.ShaderStage
	WorkgroupSize [3]uint32
	Bindings      []BindingInfo
}

// BindingInfo describes one resource binding an entry point references,
// directly or through helper functions.
type BindingInfo struct {
	Name         string
	Group        uint32
	Binding      uint32
	AddressSpace string
	AccessMode   string
	Kind         ResourceKind
}

// ResourceKind classifies a bound resource.
type ResourceKind uint8

const (
	ResourceUniformBuffer ResourceKind = iota
	ResourceStorageBuffer
	ResourceSampler
	ResourceComparisonSampler
	ResourceSampledTexture
	ResourceMultisampledTexture
	ResourceDepthTexture
	ResourceStorageTexture
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceUniformBuffer:
		return "uniform-buffer"
	case ResourceStorageBuffer:
		return "storage-buffer"
	case ResourceSampler:
		return "sampler"
	case ResourceComparisonSampler:
		return "comparison-sampler"
	case ResourceSampledTexture:
		return "sampled-texture"
	case ResourceMultisampledTexture:
		return "multisampled-texture"
	case ResourceDepthTexture:
		return "depth-texture"
	case ResourceStorageTexture:
		return "storage-texture"
	default:
		return "unknown"
	}
}

// reflect builds the reflection surface from resolver caches.
func reflect(program *wgsl.Program) ModuleInfo {
	var info ModuleInfo
	sem := program.Sem
	if sem == nil {
		return info
	}
	for _, fi := range sem.Functions {
		if !fi.IsEntryPoint() {
			continue
		}
		ep := EntryPointInfo{
			Name:          fi.Decl.Name,
			Stage:         fi.Stage,
			WorkgroupSize: fi.WorkgroupSize,
		}
		for _, bv := range fi.ResourceVars() {
			b := BindingInfo{
				Name:         bv.Var.Name,
				Group:        bv.Group,
				Binding:      bv.Binding,
				AddressSpace: bv.Var.AddressSpace,
				AccessMode:   bv.Var.AccessMode,
			}
			if t, ok := sem.GlobalVarType(bv.Var); ok {
				b.Kind = resourceKind(sem, t, bv.Var.AddressSpace)
			}
			ep.Bindings = append(ep.Bindings, b)
		}
		info.EntryPoints = append(info.EntryPoints, ep)
	}
	return info
}

func resourceKind(sem *wgsl.SemInfo, t ir.TypeHandle, space string) ResourceKind {
	typ, ok := sem.Registry.Lookup(t)
	if !ok {
		return ResourceUniformBuffer
	}
	switch inner := typ.Inner.(type) {
	case ir.SamplerType:
		if inner.Comparison {
			return ResourceComparisonSampler
		}
		return ResourceSampler
	case ir.ImageType:
		switch {
		case inner.Class == ir.ImageClassStorage:
			return ResourceStorageTexture
		case inner.Class == ir.ImageClassDepth:
			return ResourceDepthTexture
		case inner.Multisampled:
			return ResourceMultisampledTexture
		default:
			return ResourceSampledTexture
		}
	default:
		if space == "storage" {
			return ResourceStorageBuffer
		}
		return ResourceUniformBuffer
	}
}
