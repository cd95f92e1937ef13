package transform

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gogpu/wgslc/wgsl"
)

// OverrideValues maps override names to pipeline-supplied values.
type OverrideValues map[string]float64

// SubstituteOverrides replaces override declarations with const
// declarations. A value supplied through OverrideValues wins over the
// declaration's default initializer; an override with neither is an error.
// Programs without overrides are skipped.
type SubstituteOverrides struct{}

func (SubstituteOverrides) Apply(p *wgsl.Program, in DataMap, out *DataMap) (*wgsl.Program, error) {
	if len(p.Overrides) == 0 {
		return nil, nil
	}
	values, _ := Get[OverrideValues](in)

	for _, o := range p.Overrides {
		init := o.Init
		if v, ok := values[o.Name]; ok {
			init = p.AddExpr(overrideLiteral(v))
		}
		if init == wgsl.NoExpr {
			return nil, fmt.Errorf("no value provided for override %q", o.Name)
		}
		p.Constants = append(p.Constants, &wgsl.ConstDecl{
			Name: o.Name,
			Type: o.Type,
			Init: init,
			Span: o.Span,
		})
	}
	p.Overrides = nil
	p.Sem = nil
	return p, nil
}

// overrideLiteral renders a supplied value as a literal expression.
// Integral values become suffix-free integer literals so they stay
// convertible to any numeric override type.
func overrideLiteral(v float64) wgsl.Expr {
	if v == math.Trunc(v) && math.Abs(v) < 1<<31 {
		return &wgsl.LiteralExpr{
			Kind: wgsl.TokenIntLiteral,
			Text: strconv.FormatInt(int64(v), 10),
		}
	}
	return &wgsl.LiteralExpr{
		Kind: wgsl.TokenFloatLiteral,
		Text: strconv.FormatFloat(v, 'g', -1, 64),
	}
}
