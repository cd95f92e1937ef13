// Package wgsl provides the WGSL (WebGPU Shading Language) front end:
// lexing, parsing, name resolution, type checking, and lowering to IR.
//
// # Components
//
//   - Lexer: tokenizes WGSL source code
//   - Parser: builds a handle-based AST (Program) with error recovery
//   - Resolver: resolves names, checks types, and caches semantic info
//   - Lowering: translates a resolved Program into an ir.Module
//
// # Usage
//
// To compile a WGSL shader down to IR:
//
//	source := `
//	@vertex
//	fn main() -> @builtin(position) vec4<f32> {
//	    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
//	}
//	`
//
//	program := wgsl.Parse(source)
//	wgsl.Resolve(program)
//	if program.Diagnostics.HasErrors() {
//	    log.Fatal(program.Diagnostics.FormatAll(source))
//	}
//
//	module, err := wgsl.BuildIR(program)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Problems are reported as diag.Diagnostic records on Program.Diagnostics
// rather than returned as errors, so a single pass can report every
// independent problem in one batch.
//
// # WGSL Specification
//
// This implementation follows the WGSL specification:
// https://www.w3.org/TR/WGSL/
//
// # Supported Features
//
//   - Full lexical analysis
//   - Type declarations (struct, alias)
//   - Function declarations
//   - Variable declarations (var, let, const, override)
//   - All standard types (scalars, vectors, matrices, arrays, pointers,
//     atomics, textures, samplers)
//   - Attributes (@vertex, @fragment, @compute, @group, @binding, etc.)
//   - Control flow (if, for, while, loop, switch)
//   - All operators and expressions
package wgsl
