package wgsl

import (
	"runtime"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Test shader sources for lexer/parser benchmarks
// ---------------------------------------------------------------------------

const benchShaderSmall = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`

const benchShaderMedium = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOutput {
    var out: VertexOutput;
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(0.0, 0.5),
        vec2<f32>(-0.5, -0.5),
        vec2<f32>(0.5, -0.5)
    );
    out.position = vec4<f32>(pos[idx], 0.0, 1.0);
    out.color = vec4<f32>(1.0, 0.0, 0.0, 1.0);
    return out;
}

@fragment
fn fs_main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> {
    return color;
}
`

const benchShaderLarge = `
struct Camera {
    view_proj: mat4x4<f32>,
}

struct Light {
    position: vec3<f32>,
    color: vec3<f32>,
}

@group(0) @binding(0) var<uniform> camera: Camera;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) world_pos: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

@vertex
fn vs_main(
    @location(0) pos: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos.x, pos.y, pos.z, 1.0);
    out.world_pos = pos;
    out.normal = normal;
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let N = normalize(in.normal);
    let light_pos = vec3<f32>(10.0, 10.0, 10.0);
    let light_color = vec3<f32>(1.0, 1.0, 1.0);
    let L = normalize(light_pos - in.world_pos);
    let NdotL = max(dot(N, L), 0.0);
    let diffuse = light_color * NdotL;
    let view_dir = normalize(vec3<f32>(0.0, 0.0, 5.0) - in.world_pos);
    let half_dir = normalize(L + view_dir);
    let NdotH = max(dot(N, half_dir), 0.0);
    let shininess: f32 = 32.0;
    let spec_power = pow(NdotH, shininess);
    let specular = light_color * spec_power;
    let ambient = vec3<f32>(0.05, 0.05, 0.05);
    let base_color = vec3<f32>(0.8, 0.2, 0.2);
    let final_color = ambient + base_color * diffuse + specular * 0.5;
    let tone_mapped = final_color / (final_color + vec3<f32>(1.0, 1.0, 1.0));
    let gamma: f32 = 1.0 / 2.2;
    let corrected = vec3<f32>(
        pow(tone_mapped.x, gamma),
        pow(tone_mapped.y, gamma),
        pow(tone_mapped.z, gamma),
    );
    return vec4<f32>(corrected.x, corrected.y, corrected.z, 1.0);
}
`

type benchCase struct {
	name   string
	source string
}

var benchShaders = []benchCase{
	{"small", benchShaderSmall},
	{"medium", benchShaderMedium},
	{"large", benchShaderLarge},
}

// ---------------------------------------------------------------------------
// Lexer benchmarks
// ---------------------------------------------------------------------------

// BenchmarkLex benchmarks tokenization throughput for shaders of different sizes.
// Reports bytes/sec throughput for comparing across shader sizes.
func BenchmarkLex(b *testing.B) {
	for _, bc := range benchShaders {
		b.Run(bc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				tokens := NewLexer(bc.source).Tokenize()
				runtime.KeepAlive(tokens)
			}
		})
	}
}

// BenchmarkLexIdentifiers benchmarks identifier recognition throughput
// using a synthetic source with many identifiers.
func BenchmarkLexIdentifiers(b *testing.B) {
	var sb strings.Builder
	idents := []string{
		"position", "color", "vertex_index", "normal", "world_pos",
		"view_proj", "camera", "light_color", "base_color", "final_val",
		"ambient", "diffuse", "specular", "NdotL", "NdotH",
		"half_dir", "tone_mapped", "corrected", "gamma", "shininess",
	}
	for j := 0; j < 50; j++ {
		for _, id := range idents {
			sb.WriteString(id)
			sb.WriteByte(' ')
		}
	}
	source := sb.String()

	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		tokens := NewLexer(source).Tokenize()
		runtime.KeepAlive(tokens)
	}
}

// ---------------------------------------------------------------------------
// Parser benchmarks
// ---------------------------------------------------------------------------

// BenchmarkParse benchmarks parsing alone, tokenizing outside the timed loop.
func BenchmarkParse(b *testing.B) {
	for _, bc := range benchShaders {
		b.Run(bc.name, func(b *testing.B) {
			tokens := NewLexer(bc.source).Tokenize()

			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				program := NewParser(tokens).Parse()
				if program.Diagnostics.HasErrors() {
					b.Fatalf("parse failed: %v", program.Diagnostics)
				}
				runtime.KeepAlive(program)
			}
		})
	}
}

// BenchmarkLexAndParse benchmarks the combined source-to-AST path.
func BenchmarkLexAndParse(b *testing.B) {
	for _, bc := range benchShaders {
		b.Run(bc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				program := Parse(bc.source)
				if program.Diagnostics.HasErrors() {
					b.Fatalf("parse failed: %v", program.Diagnostics)
				}
				runtime.KeepAlive(program)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Resolver and lowering benchmarks
// ---------------------------------------------------------------------------

// BenchmarkResolve benchmarks name resolution and type checking on a
// pre-parsed program. Each iteration works on a fresh clone since
// resolving caches results on the program.
func BenchmarkResolve(b *testing.B) {
	for _, bc := range benchShaders {
		b.Run(bc.name, func(b *testing.B) {
			program := Parse(bc.source)
			if program.Diagnostics.HasErrors() {
				b.Fatalf("parse failed: %v", program.Diagnostics)
			}

			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				p := program.Clone()
				sem := Resolve(p)
				if p.Diagnostics.HasErrors() {
					b.Fatalf("resolve failed: %v", p.Diagnostics)
				}
				runtime.KeepAlive(sem)
			}
		})
	}
}

// BenchmarkBuildIR benchmarks AST-to-IR lowering for different shader sizes.
func BenchmarkBuildIR(b *testing.B) {
	for _, bc := range benchShaders {
		b.Run(bc.name, func(b *testing.B) {
			program := Parse(bc.source)
			Resolve(program)
			if program.Diagnostics.HasErrors() {
				b.Fatalf("resolve failed: %v", program.Diagnostics)
			}

			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				module, err := BuildIR(program)
				if err != nil {
					b.Fatalf("lower failed: %v", err)
				}
				runtime.KeepAlive(module)
			}
		})
	}
}

// BenchmarkFrontEnd benchmarks the whole source-to-IR path.
func BenchmarkFrontEnd(b *testing.B) {
	for _, bc := range benchShaders {
		b.Run(bc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(bc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				program := Parse(bc.source)
				Resolve(program)
				if program.Diagnostics.HasErrors() {
					b.Fatalf("resolve failed: %v", program.Diagnostics)
				}
				module, err := BuildIR(program)
				if err != nil {
					b.Fatalf("lower failed: %v", err)
				}
				runtime.KeepAlive(module)
			}
		})
	}
}
