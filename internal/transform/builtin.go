package transform

import (
	"context"
	"fmt"
	"strings"
)

func init() {
	Register("identity", func(Env) (Transformer, error) {
		return Func(func(_ context.Context, line string, _ int) (string, bool, error) {
			return line + "\n", true, nil
		}), nil
	})
	Register("upper", func(Env) (Transformer, error) {
		return Func(func(_ context.Context, line string, _ int) (string, bool, error) {
			return strings.ToUpper(line) + "\n", true, nil
		}), nil
	})
	// cat -n style numbering, 1-based
	Register("number", func(Env) (Transformer, error) {
		return Func(func(_ context.Context, line string, index int) (string, bool, error) {
			return fmt.Sprintf("%6d\t%s\n", index+1, line), true, nil
		}), nil
	})
}
