package wgsl

import (
	"strings"
	"testing"
)

// reprint parses, prints, reparses, and prints again. The two printed
// forms must agree: printing is a fixed point of parse-then-print.
func reprint(t *testing.T, source string) (string, string) {
	t.Helper()
	first := parseSource(t, source)
	printed := Print(first)
	second := Parse(printed)
	if second.Diagnostics.HasErrors() {
		t.Fatalf("printed output failed to reparse:\n%s\ndiagnostics:\n%s",
			printed, second.Diagnostics.FormatAll(printed))
	}
	return printed, Print(second)
}

func TestPrintRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"vertex shader", `@vertex
fn main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 1.0);
}`},
		{"struct and uniform", `struct Camera {
    @align(16) view: mat4x4<f32>,
    position: vec3<f32>,
}
@group(0) @binding(0) var<uniform> camera: Camera;`},
		{"control flow", `fn f(n: i32) -> i32 {
    var total: i32 = 0;
    for (var i = 0; i < n; i++) {
        if i % 2 == 0 {
            total += i;
        } else {
            continue;
        }
    }
    return total;
}`},
		{"loop continuing", `fn g() {
    var i = 0;
    loop {
        i += 1;
        continuing {
            break if i > 4;
        }
    }
}`},
		{"switch", `fn pick(x: u32) -> f32 {
    switch x {
        case 0u, 1u: { return 0.5; }
        default: { return 1.0; }
    }
}`},
		{"expressions", `fn h(a: f32, b: f32) -> f32 {
    let x = (a + b) * (a - b) / 2.0;
    let y = -x + f32(1);
    let z = bitcast<u32>(y);
    return x;
}`},
		{"overrides and constants", `const LIMIT: u32 = 16u;
@id(3) override gain: f32 = 1.5;
override bias: f32;`},
		{"pointer and array", `fn inc(p: ptr<function, f32>) {
    *p = *p + 1.0;
}
var<private> data: array<vec2<f32>, 8>;`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			firstPrint, secondPrint := reprint(t, tt.source)
			if firstPrint != secondPrint {
				t.Errorf("print not stable under reparse:\nfirst:\n%s\nsecond:\n%s",
					firstPrint, secondPrint)
			}
		})
	}
}

func TestPrintBinaryParenthesized(t *testing.T) {
	program := parseSource(t, `fn f() { let x = 1 + 2 * 3; }`)
	out := Print(program)
	if !strings.Contains(out, "(1 + (2 * 3))") {
		t.Errorf("expected fully parenthesized binary expression, got:\n%s", out)
	}
}

func TestPrintEnable(t *testing.T) {
	program := parseSource(t, "enable f16;\nfn f() -> f16 { return 1.0h; }")
	out := Print(program)
	if !strings.Contains(out, "enable f16;") {
		t.Errorf("missing enable directive in output:\n%s", out)
	}
}
