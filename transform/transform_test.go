package transform

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/wgslc/wgsl"
)

func parseClean(t *testing.T, source string) *wgsl.Program {
	t.Helper()
	p := wgsl.Parse(source)
	wgsl.Resolve(p)
	if p.Diagnostics.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", p.Diagnostics.FormatAll(source))
	}
	return p
}

func TestDataMapRoundTrip(t *testing.T) {
	var d DataMap
	Put(&d, OverrideValues{"x": 1.5})
	Put(&d, EntryPointName("main"))

	values, ok := Get[OverrideValues](d)
	if !ok || values["x"] != 1.5 {
		t.Errorf("OverrideValues = %v, %v", values, ok)
	}
	name, ok := Get[EntryPointName](d)
	if !ok || name != "main" {
		t.Errorf("EntryPointName = %q, %v", name, ok)
	}
	if _, ok := Get[RenameData](d); ok {
		t.Error("absent payload should report false")
	}
}

func TestDataMapReplaces(t *testing.T) {
	var d DataMap
	Put(&d, EntryPointName("a"))
	Put(&d, EntryPointName("b"))
	name, _ := Get[EntryPointName](d)
	if name != "b" {
		t.Errorf("name = %q, want b", name)
	}
}

// skipAll never applies.
type skipAll struct{}

func (skipAll) Apply(p *wgsl.Program, in DataMap, out *DataMap) (*wgsl.Program, error) {
	return nil, nil
}

func TestRunSkipForwardsOriginal(t *testing.T) {
	p := parseClean(t, `fn f() -> i32 { return 1; }`)
	out, err := Run(skipAll{}, p, DataMap{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Program != p {
		t.Error("skip should forward the original program")
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	p := parseClean(t, `override scale: f32 = 1.0;`)
	var in DataMap
	Put(&in, OverrideValues{"scale": 4.0})

	out, err := Run(SubstituteOverrides{}, p, in)
	if err != nil {
		t.Fatal(err)
	}
	if out.Program == p {
		t.Fatal("applied transform should produce a new program")
	}
	if len(p.Overrides) != 1 {
		t.Error("input program must keep its override")
	}
	if len(out.Program.Overrides) != 0 || len(out.Program.Constants) != 1 {
		t.Error("output program should carry the substituted constant")
	}
}

func TestSubstituteOverridesSkipsWithoutOverrides(t *testing.T) {
	p := parseClean(t, `const x = 1;`)
	out, err := Run(SubstituteOverrides{}, p, DataMap{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Program != p {
		t.Error("expected a skip for a program without overrides")
	}
}

func TestSubstituteOverridesUsesDefault(t *testing.T) {
	p := parseClean(t, `
		override scale: f32 = 2.0;
		fn f() -> f32 { return scale; }
	`)
	out, err := Run(SubstituteOverrides{}, p, DataMap{})
	if err != nil {
		t.Fatal(err)
	}
	result := out.Program
	if len(result.Constants) != 1 || result.Constants[0].Name != "scale" {
		t.Fatalf("constants = %+v", result.Constants)
	}
	wgsl.Resolve(result)
	if result.Diagnostics.HasErrors() {
		t.Errorf("substituted program has errors:\n%v", result.Diagnostics)
	}
}

func TestSubstituteOverridesMissingValue(t *testing.T) {
	p := parseClean(t, `override scale: f32;`)
	_, err := Run(SubstituteOverrides{}, p, DataMap{})
	if err == nil {
		t.Fatal("expected an error for an override without a value")
	}
	if !strings.Contains(err.Error(), "scale") {
		t.Errorf("error %q should name the override", err)
	}
}

func TestSubstituteOverridesSuppliedValueWins(t *testing.T) {
	p := parseClean(t, `
		override count: u32 = 4u;
		fn f() -> u32 { return count; }
	`)
	var in DataMap
	Put(&in, OverrideValues{"count": 16})
	out, err := Run(SubstituteOverrides{}, p, in)
	if err != nil {
		t.Fatal(err)
	}
	result := out.Program
	init, ok := result.Expr(result.Constants[0].Init).(*wgsl.LiteralExpr)
	if !ok || init.Text != "16" {
		t.Errorf("constant init = %+v, want literal 16", result.Expr(result.Constants[0].Init))
	}
	wgsl.Resolve(result)
	if result.Diagnostics.HasErrors() {
		t.Errorf("substituted program has errors:\n%v", result.Diagnostics)
	}
}

const twoEntrySource = `
	@group(0) @binding(0) var<uniform> shared_mat: mat4x4<f32>;
	@group(0) @binding(1) var<storage, read> vert_only: array<f32>;
	@group(0) @binding(2) var<storage, read> frag_only: array<f32>;

	fn vert_helper() -> f32 { return vert_only[0]; }

	@vertex
	fn vs_main() -> @builtin(position) vec4<f32> {
		return shared_mat * vec4<f32>(vert_helper(), 0.0, 0.0, 1.0);
	}

	@fragment
	fn fs_main() -> @location(0) vec4<f32> {
		return vec4<f32>(frag_only[0]);
	}
`

func TestSingleEntryPointPrunes(t *testing.T) {
	p := parseClean(t, twoEntrySource)
	var in DataMap
	Put(&in, EntryPointName("vs_main"))

	out, err := Run(SingleEntryPoint{}, p, in)
	if err != nil {
		t.Fatal(err)
	}
	result := out.Program

	funcNames := make([]string, 0, len(result.Functions))
	for _, f := range result.Functions {
		funcNames = append(funcNames, f.Name)
	}
	if len(funcNames) != 2 || funcNames[0] != "vert_helper" || funcNames[1] != "vs_main" {
		t.Errorf("functions = %v, want [vert_helper vs_main]", funcNames)
	}

	varNames := make([]string, 0, len(result.GlobalVars))
	for _, v := range result.GlobalVars {
		varNames = append(varNames, v.Name)
	}
	if len(varNames) != 2 || varNames[0] != "shared_mat" || varNames[1] != "vert_only" {
		t.Errorf("globals = %v, want [shared_mat vert_only]", varNames)
	}

	wgsl.Resolve(result)
	if result.Diagnostics.HasErrors() {
		t.Errorf("pruned program has errors:\n%v", result.Diagnostics)
	}
}

func TestSingleEntryPointUnknownName(t *testing.T) {
	p := parseClean(t, twoEntrySource)
	var in DataMap
	Put(&in, EntryPointName("missing"))
	if _, err := Run(SingleEntryPoint{}, p, in); err == nil {
		t.Fatal("expected an error for an unknown entry point")
	}
}

func TestRenamer(t *testing.T) {
	p := parseClean(t, `
		const ambient_strength = 0.1;

		struct Light {
			color: vec3<f32>,
		}
		@group(0) @binding(0) var<uniform> light: Light;

		fn shade(base: vec3<f32>) -> vec3<f32> {
			return base * light.color * ambient_strength;
		}

		@fragment
		fn fs_main() -> @location(0) vec4<f32> {
			return vec4<f32>(shade(vec3<f32>(1.0)), 1.0);
		}
	`)
	out, err := Run(Renamer{}, p, DataMap{})
	if err != nil {
		t.Fatal(err)
	}
	result := out.Program

	data, ok := Get[RenameData](out.Data)
	if !ok {
		t.Fatal("expected RenameData output")
	}
	// const, struct, global var, and helper function get fresh names.
	if len(data) != 4 {
		t.Errorf("renamed %d declarations, want 4: %v", len(data), data)
	}
	for newName, oldName := range data {
		if len(newName) >= len(oldName) {
			t.Errorf("rename %q -> %q is not compact", oldName, newName)
		}
	}

	for _, f := range result.Functions {
		if f.Name == "shade" {
			t.Error("helper function should have been renamed")
		}
	}
	sawEntry := false
	for _, f := range result.Functions {
		if f.Name == "fs_main" {
			sawEntry = true
		}
	}
	if !sawEntry {
		t.Error("entry point name must be preserved")
	}

	wgsl.Resolve(result)
	if result.Diagnostics.HasErrors() {
		t.Errorf("renamed program has errors:\n%v", result.Diagnostics)
	}
}

func TestRenamerLeavesShadowedLocals(t *testing.T) {
	p := parseClean(t, `
		var<private> value: i32 = 1;

		fn f() -> i32 {
			let value = 10;
			return value;
		}
	`)
	out, err := Run(Renamer{}, p, DataMap{})
	if err != nil {
		t.Fatal(err)
	}
	result := out.Program
	wgsl.Resolve(result)
	if result.Diagnostics.HasErrors() {
		t.Fatalf("renamed program has errors:\n%v", result.Diagnostics)
	}
	// The local let keeps its name; only the module var is renamed.
	for h := wgsl.StmtHandle(0); int(h) < result.StmtCount(); h++ {
		if d, ok := result.Stmt(h).(*wgsl.DeclStmt); ok && d.Name != "value" {
			t.Errorf("local declaration renamed to %q", d.Name)
		}
	}
	if result.GlobalVars[0].Name == "value" {
		t.Error("module variable should have been renamed")
	}
}

func TestCompactNameSequence(t *testing.T) {
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if got := compactName(i); got != w {
			t.Errorf("compactName(%d) = %q, want %q", i, got, w)
		}
	}
	if got := compactName(26); got != "aa" {
		t.Errorf("compactName(26) = %q, want aa", got)
	}
	if got := compactName(27); got != "ab" {
		t.Errorf("compactName(27) = %q, want ab", got)
	}
}

// failing always errors without producing a program.
type failing struct{}

func (failing) Apply(p *wgsl.Program, in DataMap, out *DataMap) (*wgsl.Program, error) {
	return nil, errors.New("nothing to apply")
}

func TestManagerFailureKeepsLastProgram(t *testing.T) {
	p := parseClean(t, `fn f() -> i32 { return 1; }`)
	var m Manager
	m.Append(failing{})

	out, err := m.Run(p, DataMap{})
	if err == nil {
		t.Fatal("expected the chain to fail")
	}
	if out.Program != p {
		t.Error("a failing chain must still return the last good program")
	}
}

// truncating clips the initializer off the first constant, leaving a
// node no resolver pass should ever see.
type truncating struct{}

func (truncating) Apply(p *wgsl.Program, in DataMap, out *DataMap) (*wgsl.Program, error) {
	p.Constants[0].Init = wgsl.NoExpr
	return p, nil
}

func TestManagerRejectsBrokenProgram(t *testing.T) {
	p := parseClean(t, `const x = 1;`)
	var m Manager
	m.Append(truncating{})

	out, err := m.Run(p, DataMap{})
	if err == nil {
		t.Fatal("expected the chain to reject the broken program")
	}
	if !strings.Contains(err.Error(), "structurally invalid") {
		t.Errorf("error = %q, want a structural validity report", err)
	}
	if out.Program != p {
		t.Error("the broken program must not be forwarded")
	}
	if p.Constants[0].Init == wgsl.NoExpr {
		t.Error("input program mutated by the rejected transform")
	}
}

func TestManagerChain(t *testing.T) {
	p := parseClean(t, `
		override scale: f32 = 1.0;

		@vertex
		fn vs_main() -> @builtin(position) vec4<f32> {
			return vec4<f32>(scale);
		}

		@fragment
		fn fs_main() -> @location(0) vec4<f32> {
			return vec4<f32>(1.0);
		}
	`)
	var m Manager
	m.Append(SubstituteOverrides{}, SingleEntryPoint{}, Renamer{})

	var in DataMap
	Put(&in, OverrideValues{"scale": 0.5})
	Put(&in, EntryPointName("vs_main"))

	out, err := m.Run(p, in)
	if err != nil {
		t.Fatal(err)
	}
	result := out.Program
	if len(result.Overrides) != 0 {
		t.Error("overrides should be substituted")
	}
	if len(result.Functions) != 1 || result.Functions[0].Name != "vs_main" {
		t.Errorf("functions = %v", result.Functions)
	}
	if _, ok := Get[RenameData](out.Data); !ok {
		t.Error("manager should carry transform outputs forward")
	}
	if result.Diagnostics.HasErrors() {
		t.Errorf("final program has errors:\n%v", result.Diagnostics)
	}
	// Original untouched by the whole chain.
	if len(p.Overrides) != 1 || len(p.Functions) != 2 {
		t.Error("input program mutated by the manager")
	}
}
