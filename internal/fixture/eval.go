package fixture

import (
	"strings"
)

// EvalContext provides context for condition evaluation.
type EvalContext struct {
	Vars    map[string]string
	Visited map[string]bool
}

// EvalCondition evaluates a menu or branch condition.
// Supported patterns:
//   - "" (empty = always true)
//   - "<node>.visited"
//   - "<var> == '<value>'" and "<var> != '<value>'"
//   - any of the above joined with "&&"
//
// Unknown patterns are false.
func EvalCondition(expr string, ctx *EvalContext) bool {
	expr = strings.TrimSpace(expr)

	if expr == "" {
		return true
	}

	if strings.Contains(expr, "&&") {
		parts := strings.SplitN(expr, "&&", 2)
		return EvalCondition(parts[0], ctx) && EvalCondition(parts[1], ctx)
	}

	if strings.Contains(expr, "!=") {
		name, value, ok := parseComparison(expr, "!=")
		if !ok {
			return false
		}
		return ctx.Vars[name] != value
	}

	if strings.Contains(expr, "==") {
		name, value, ok := parseComparison(expr, "==")
		if !ok {
			return false
		}
		v, set := ctx.Vars[name]
		return set && v == value
	}

	if strings.HasSuffix(expr, ".visited") {
		return ctx.Visited[strings.TrimSuffix(expr, ".visited")]
	}

	return false
}

// parseComparison parses "<var> <op> '<value>'".
func parseComparison(expr, op string) (string, string, bool) {
	parts := strings.SplitN(expr, op, 2)
	name := strings.TrimSpace(parts[0])
	raw := strings.TrimSpace(parts[1])
	if name == "" {
		return "", "", false
	}
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return name, raw[1 : len(raw)-1], true
	}
	return name, raw, true
}
