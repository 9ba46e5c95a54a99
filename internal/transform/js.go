package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dop251/goja"
)

// prelude gives file scripts the module/require shape they expect, so a
// script ending in `module.exports = fn` can be loaded as-is.
const prelude = `
var module = { exports: undefined };
var exports = {};
function require(name) { throw new Error("require(" + name + ") is not available"); }
`

// JS runs a JavaScript function per line inside a goja runtime (ES2015+:
// arrow functions, let/const, for...of). The runtime is not safe for
// concurrent use; the pump calls it from one goroutine.
type JS struct {
	vm     *goja.Runtime
	fn     goja.Callable
	out    io.Writer
	onExit []goja.Callable
	closed bool
}

// NewJS compiles src as an expression that must yield a function, e.g.
// `s => s.toUpperCase() + "\n"`.
func NewJS(src string, out io.Writer) (*JS, error) {
	js, err := newVM(out)
	if err != nil {
		return nil, err
	}
	v, err := js.vm.RunString("(" + src + "\n)")
	if err != nil {
		return nil, fmt.Errorf("js: compile: %w", err)
	}
	return js.bind(v)
}

// NewJSProgram runs src as a whole script and takes module.exports, or the
// script's completion value when nothing was exported.
func NewJSProgram(src string, out io.Writer) (*JS, error) {
	js, err := newVM(out)
	if err != nil {
		return nil, err
	}
	if _, err := js.vm.RunString(prelude); err != nil {
		return nil, fmt.Errorf("js: prelude: %w", err)
	}
	v, err := js.vm.RunString(src)
	if err != nil {
		return nil, fmt.Errorf("js: compile: %w", err)
	}
	exported, err := js.vm.RunString("module.exports")
	if err != nil {
		return nil, fmt.Errorf("js: module.exports: %w", err)
	}
	if _, ok := goja.AssertFunction(exported); ok {
		v = exported
	}
	return js.bind(v)
}

var errNotFunction = errors.New("js: script does not evaluate to a function")

func (js *JS) bind(v goja.Value) (*JS, error) {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errNotFunction
	}
	js.fn = fn
	return js, nil
}

func newVM(out io.Writer) (*JS, error) {
	js := &JS{vm: goja.New(), out: out}

	console := js.vm.NewObject()
	if err := console.Set("log", js.consoleLog); err != nil {
		return nil, err
	}
	if err := js.vm.Set("console", console); err != nil {
		return nil, err
	}

	stdout := js.vm.NewObject()
	if err := stdout.Set("write", js.stdoutWrite); err != nil {
		return nil, err
	}
	process := js.vm.NewObject()
	if err := process.Set("on", js.processOn); err != nil {
		return nil, err
	}
	if err := process.Set("stdout", stdout); err != nil {
		return nil, err
	}
	if err := js.vm.Set("process", process); err != nil {
		return nil, err
	}
	return js, nil
}

func (js *JS) write(s string) {
	if _, err := io.WriteString(js.out, s); err != nil {
		panic(js.vm.NewGoError(err))
	}
}

func (js *JS) consoleLog(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		parts[i] = a.String()
	}
	js.write(strings.Join(parts, " ") + "\n")
	return goja.Undefined()
}

func (js *JS) stdoutWrite(call goja.FunctionCall) goja.Value {
	js.write(call.Argument(0).String())
	return js.vm.ToValue(true)
}

// processOn records "exit" listeners; other events never fire here.
func (js *JS) processOn(call goja.FunctionCall) goja.Value {
	if call.Argument(0).String() != "exit" {
		return goja.Undefined()
	}
	if fn, ok := goja.AssertFunction(call.Argument(1)); ok {
		js.onExit = append(js.onExit, fn)
	}
	return goja.Undefined()
}

func (js *JS) Transform(_ context.Context, line string, index int) (string, bool, error) {
	v, err := js.fn(goja.Undefined(), js.vm.ToValue(line), js.vm.ToValue(index))
	if err != nil {
		return "", false, fmt.Errorf("js: %w", err)
	}
	if v == nil {
		return "", false, nil
	}
	s, ok := v.Export().(string)
	if !ok {
		return "", false, nil
	}
	return s, true, nil
}

// Close runs the registered exit listeners once, in registration order.
func (js *JS) Close() error {
	if js.closed {
		return nil
	}
	js.closed = true
	for _, fn := range js.onExit {
		if _, err := fn(goja.Undefined()); err != nil {
			return fmt.Errorf("js: exit listener: %w", err)
		}
	}
	return nil
}

// Discard drops the exit listeners without running them; a later Close is
// a no-op.
func (js *JS) Discard() error {
	js.closed = true
	js.onExit = nil
	return nil
}
