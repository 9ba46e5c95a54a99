// Package tally implements the "vowels" reference transformer: it counts
// the letters a, e, i and o (u is deliberately not tracked) plus the total
// line length, and writes a JSON summary every N lines and once more on
// Close if anything was counted since the last summary.
package tally

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"linepump/internal/transform"
)

const DefaultEvery = 10

// Counts is one summary record. Field order fixes the JSON key order.
type Counts struct {
	A     int `json:"a"`
	E     int `json:"e"`
	I     int `json:"i"`
	O     int `json:"o"`
	Total int `json:"total"`
}

type Option func(*Tally)

// WithEvery sets the flush period in lines.
func WithEvery(n int) Option {
	return func(t *Tally) {
		if n > 0 {
			t.every = n
		}
	}
}

// WithOnFlush registers a hook called after each summary is written.
func WithOnFlush(fn func()) Option {
	return func(t *Tally) { t.onFlush = fn }
}

// Tally is not safe for concurrent use.
type Tally struct {
	out     io.Writer
	every   int
	onFlush func()
	counts  Counts
}

func New(out io.Writer, opts ...Option) *Tally {
	t := &Tally{out: out, every: DefaultEvery}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Count adds line to the tally and flushes when index+1 is a multiple of
// the period.
func (t *Tally) Count(line string, index int) error {
	t.counts.Total += transform.Length(line)
	for _, r := range strings.ToLower(line) {
		switch r {
		case 'a':
			t.counts.A++
		case 'e':
			t.counts.E++
		case 'i':
			t.counts.I++
		case 'o':
			t.counts.O++
		}
	}
	if (index+1)%t.every == 0 {
		return t.Flush()
	}
	return nil
}

// Transform never yields a string; summaries go to the side channel.
func (t *Tally) Transform(_ context.Context, line string, index int) (string, bool, error) {
	return "", false, t.Count(line, index)
}

// Flush writes the current counts as one JSON line and zeroes them. The
// counts are zeroed even when the write fails.
func (t *Tally) Flush() error {
	b, err := json.Marshal(t.counts)
	t.counts = Counts{}
	if err != nil {
		return err
	}
	if _, err := t.out.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("tally: flush: %w", err)
	}
	if t.onFlush != nil {
		t.onFlush()
	}
	return nil
}

// Close is the exit-time flush: it writes a summary only if total > 0.
func (t *Tally) Close() error {
	if t.counts.Total == 0 {
		return nil
	}
	return t.Flush()
}

func (t *Tally) Snapshot() Counts { return t.counts }

func init() {
	transform.Register("vowels", func(env transform.Env) (transform.Transformer, error) {
		return New(env.Out, WithEvery(env.FlushEvery), WithOnFlush(env.OnFlush)), nil
	})
}
