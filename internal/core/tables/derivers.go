package tables

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/planbook/internal/core"
)

// derivers maps a catalog function name to a builder taking column keys.
var derivers = map[string]func(args []string) (core.DeriveFunc, error){
	"product": product,
}

// ParseDeriver resolves an expression such as "product(probability, impact)".
func ParseDeriver(expr string) (core.DeriveFunc, error) {
	expr = strings.TrimSpace(expr)
	open := strings.IndexByte(expr, '(')
	if open <= 0 || !strings.HasSuffix(expr, ")") {
		return nil, fmt.Errorf("malformed deriver %q", expr)
	}
	name := strings.TrimSpace(expr[:open])
	build, ok := derivers[name]
	if !ok {
		return nil, fmt.Errorf("unknown deriver %q", name)
	}

	var args []string
	for _, a := range strings.Split(expr[open+1:len(expr)-1], ",") {
		if a = strings.TrimSpace(a); a != "" {
			args = append(args, a)
		}
	}
	return build(args)
}

// product multiplies numeric columns. Any blank or unparsable operand
// leaves the result blank.
func product(args []string) (core.DeriveFunc, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("product needs at least two columns, got %d", len(args))
	}
	return func(row core.Record) core.Value {
		result := 1.0
		for _, key := range args {
			f, ok := core.ToFloat(row[key])
			if !ok {
				return ""
			}
			result *= f
		}
		return core.ValueString(result)
	}, nil
}
