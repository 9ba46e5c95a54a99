package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
)

var exprFunctions = map[string]govaluate.ExpressionFunction{
	"upper": stringFunc("upper", strings.ToUpper),
	"lower": stringFunc("lower", strings.ToLower),
	"trim":  stringFunc("trim", strings.TrimSpace),
	"nl":    stringFunc("nl", func(s string) string { return s + "\n" }),
	"len": func(args ...interface{}) (interface{}, error) {
		s, err := oneString("len", args)
		if err != nil {
			return nil, err
		}
		return float64(Length(s)), nil
	},
}

func stringFunc(name string, fn func(string) string) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		s, err := oneString(name, args)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func oneString(name string, args []interface{}) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s: want 1 argument, got %d", name, len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: want string, got %T", name, args[0])
	}
	return s, nil
}

// Expr evaluates a govaluate expression with parameters line, index and
// length. Numbers are float64, as govaluate requires; length and len()
// count UTF-16 code units.
type Expr struct {
	src  string
	expr *govaluate.EvaluableExpression
}

func NewExpr(src string) (*Expr, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(src, exprFunctions)
	if err != nil {
		return nil, fmt.Errorf("expr: %w", err)
	}
	return &Expr{src: src, expr: e}, nil
}

func (e *Expr) Transform(_ context.Context, line string, index int) (string, bool, error) {
	v, err := e.expr.Evaluate(map[string]interface{}{
		"line":   line,
		"index":  float64(index),
		"length": float64(Length(line)),
	})
	if err != nil {
		return "", false, fmt.Errorf("expr %q: %w", e.src, err)
	}
	s, ok := v.(string)
	return s, ok, nil
}
