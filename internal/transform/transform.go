package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf16"
)

// Transformer maps one input line to an optional output string. ok reports
// whether out should be written; err aborts the pump.
type Transformer interface {
	Transform(ctx context.Context, line string, index int) (out string, ok bool, err error)
}

// Func adapts a plain function to Transformer.
type Func func(ctx context.Context, line string, index int) (string, bool, error)

func (f Func) Transform(ctx context.Context, line string, index int) (string, bool, error) {
	return f(ctx, line, index)
}

// Env is what a factory may draw on when building a transformer.
type Env struct {
	Out        io.Writer     // side channel for prints and flushes; os.Stdout when nil
	FlushEvery int           // tally period in lines
	Timeout    time.Duration // per-line deadline for remote transformers
	OnFlush    func()        // called after every tally flush
}

func (e Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

// Factory builds a named transformer.
type Factory func(Env) (Transformer, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register is called from each builtin's init().
func Register(name string, f Factory) {
	mu.Lock()
	registry[name] = f
	mu.Unlock()
}

// Names lists the registered builtins, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var ErrEmpty = errors.New("transformer: empty argument")

const (
	exprPrefix = "expr:"
	grpcPrefix = "grpc://"
	jsPrefix   = "js:"
)

// Parse resolves a transformer argument. See the package doc for the forms.
func Parse(spec string, env Env) (Transformer, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return nil, ErrEmpty
	}
	env.Out = env.out()

	mu.RLock()
	f, ok := registry[s]
	mu.RUnlock()
	if ok {
		t, err := f(env)
		if err != nil {
			return nil, fmt.Errorf("transformer %s: %w", s, err)
		}
		return t, nil
	}

	switch {
	case strings.HasPrefix(s, exprPrefix):
		return NewExpr(strings.TrimPrefix(s, exprPrefix))
	case strings.HasPrefix(s, grpcPrefix):
		return NewRemote(strings.TrimPrefix(s, grpcPrefix), env.Timeout)
	case strings.HasPrefix(s, jsPrefix):
		return NewJS(strings.TrimPrefix(s, jsPrefix), env.Out)
	default:
		return NewJS(s, env.Out)
	}
}

// Close closes t if it holds resources or exit hooks.
func Close(t Transformer) error {
	if c, ok := t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Discard releases a transformer that never ran. Connections are closed but
// exit hooks and final flushes are skipped.
func Discard(t Transformer) error {
	if d, ok := t.(interface{ Discard() error }); ok {
		return d.Discard()
	}
	return nil
}

// Length is the length of s in UTF-16 code units, the unit scripts see as
// string length. It equals len(s) for ASCII.
func Length(s string) int {
	return len(utf16.Encode([]rune(s)))
}
