package wgsl

import (
	"strings"
	"testing"

	"github.com/gogpu/wgslc/diag"
)

// collectErrors parses and resolves source, returning every error-severity
// diagnostic recorded along the way.
func collectErrors(source string) diag.List {
	p := Parse(source)
	if !p.Diagnostics.HasErrors() {
		Resolve(p)
	}
	return p.Diagnostics.Errors()
}

func TestParseErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		errContains string
	}{
		{"literal at top level", `42;`, "expected declaration"},
		{"statement at top level", `return 0;`, "expected declaration"},
		{"missing function name", `fn () {}`, "expected function name"},
		{"missing parameter name", `fn foo( {}`, "expected parameter name"},
		{"missing struct name", `struct { x: f32 }`, "expected struct name"},
		{"missing member name", `struct Foo { : f32 }`, "expected member name"},
		{"missing variable name", `var<private> : f32;`, "expected variable name"},
		{"missing constant name", `const = 1;`, "expected constant name"},
		{"missing alias name", `alias = f32;`, "expected alias name"},
		{"bare attribute", `@ fn foo() {}`, "expected attribute name"},
		{"missing expression", `fn foo() { let x = ; }`, "in expression"},
		{"missing switch clause", `fn foo() { switch 1 { 2 } }`, "expected 'case' or 'default'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := collectErrors(tt.source)
			if len(errs) == 0 {
				t.Fatalf("expected a parse error for %q", tt.source)
			}
			if !containsMessage(errs, tt.errContains) {
				t.Errorf("no diagnostic containing %q, got %v", tt.errContains, errs)
			}
		})
	}
}

func TestResolveErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		errContains string
	}{
		{"unresolved identifier", `fn foo() { let x = unknown_var; }`, "unresolved identifier"},
		{"unresolved in expression", `fn foo() { let x = 1 + undefined_name; }`, "unresolved identifier"},
		{"unknown function", `fn foo() { let x = nonexistent_func(1); }`, "unknown function"},
		{"unknown type in var", `fn foo() { var x: unknown_type; }`, "unknown type"},
		{"unknown type in param", `fn foo(x: nonexistent_type) {}`, "unknown type"},
		{"unknown type in global", `var<private> x: fake_type;`, "unknown type"},
		{"var without type or init", `fn foo() { var x; }`, "needs a type or an initializer"},
		{"global without type or init", `var<private> x;`, "needs a type or an initializer"},
		{"redeclared global", `var<private> a: f32; var<private> a: f32;`, "redeclaration"},
		{"return type mismatch", `fn foo() -> i32 { return 1.5; }`, "cannot return"},
		{"return from void function", `fn foo() { return 1; }`, "no return type"},
		{"assign type mismatch", `fn foo() { var x: i32 = 0; x = 1.5; }`, "cannot assign"},
		{"logical not on integer", `fn foo() { let x = !1; }`, "operator ! needs bool"},
		{"negate a bool", `fn foo() { let x = -true; }`, "cannot negate"},
		{"mismatched operands", `fn foo() { let x = 1u + 1i; }`, "mismatched types"},
		{"float switch selector", `fn foo() { switch 1.5 { default {} } }`, "switch selector must be an integer"},
		{"invalid swizzle", `fn foo() { let v = vec2<f32>(1.0, 2.0); let x = v.xq; }`, "invalid swizzle"},
		{"call arity", `fn bar(a: i32) {} fn foo() { bar(); }`, "expects 1 arguments"},
		{"atomic on non-pointer", `fn foo() { let x = atomicLoad(1); }`, "needs a pointer to an atomic"},
		{
			"duplicate binding",
			`@group(0) @binding(0) var<uniform> a: f32;
			 @group(0) @binding(0) var<uniform> b: f32;`,
			"duplicate binding",
		},
		{
			"non-constant workgroup size",
			`@compute @workgroup_size(1.5) fn main() {}`,
			"workgroup size must be a constant integer expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := collectErrors(tt.source)
			if len(errs) == 0 {
				t.Fatalf("expected a resolve error for %q", tt.source)
			}
			if !containsMessage(errs, tt.errContains) {
				t.Errorf("no diagnostic containing %q, got %v", tt.errContains, errs)
			}
		})
	}
}

// TestErrorDiagnosticsCarrySpans checks that every reported error points at
// a real source location, since downstream formatting relies on it.
func TestErrorDiagnosticsCarrySpans(t *testing.T) {
	errs := collectErrors(`fn foo() { let x = unknown_var; }`)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if errs[0].Span.Start.Line != 1 || errs[0].Span.Start.Column == 0 {
		t.Errorf("diagnostic has no usable span: %+v", errs[0].Span)
	}
}

func containsMessage(list diag.List, substr string) bool {
	for _, d := range list {
		if strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}
