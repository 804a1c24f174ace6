package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// unitCtx exposes second/minute/hour/day as cty numbers so config files
// can write duration attributes as arithmetic, e.g. `job_start_sla = 10
// * minute`, without a bespoke duration-string parser.
var unitCtx = &hcl.EvalContext{
	Variables: map[string]cty.Value{
		"second": cty.NumberIntVal(int64(time.Second)),
		"minute": cty.NumberIntVal(int64(time.Minute)),
		"hour":   cty.NumberIntVal(int64(time.Hour)),
		"day":    cty.NumberIntVal(int64(24 * time.Hour)),
	},
}

// evalDuration evaluates an HCL expression in unitCtx and converts the
// result to a time.Duration. A nil expression, or one that evaluates to
// null (which is what gohcl supplies for an omitted optional attribute),
// yields fallback.
func evalDuration(expr hcl.Expression, fallback time.Duration) (time.Duration, error) {
	if expr == nil {
		return fallback, nil
	}
	val, diags := expr.Value(unitCtx)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() {
		return fallback, nil
	}
	var nanos int64
	if err := gocty.FromCtyValue(val, &nanos); err != nil {
		return 0, err
	}
	return time.Duration(nanos), nil
}
