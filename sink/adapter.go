package sink

import (
	"fmt"
	"sort"
)

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error   // driver-specific config ⇒ struct
	Push(out string) error // one transformer result, written verbatim
	Close() error          // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q (have %v)", name, names())
}

func names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
