package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"linepump/internal/logging"
	"linepump/internal/telemetry"
	"linepump/internal/transform"
	"linepump/sink"
)

var ErrNoTransformer = errors.New("runner: no transformer configured")

// Runner is the line pump: every input line goes through the transformer
// once, in order, and string results fan out to the sinks.
type Runner struct {
	transformer transform.Transformer
	sinks       []sink.Adapter
	metrics     *telemetry.Metrics
}

func NewRunner() *Runner { return &Runner{} }

func (r *Runner) SetTransformer(t transform.Transformer) { r.transformer = t }
func (r *Runner) AddSink(s sink.Adapter)                 { r.sinks = append(r.sinks, s) }
func (r *Runner) SetMetrics(m *telemetry.Metrics)        { r.metrics = m }

/*──────── result routing ───────*/
func (r *Runner) push(out string) error {
	for _, s := range r.sinks {
		if err := s.Push(out); err != nil {
			return err
		}
	}
	r.metrics.IncEmitted()
	return nil
}

// Run reads in until EOF. The first transformer, sink or read error stops
// the run and is returned; no later line is read.
func (r *Runner) Run(ctx context.Context, in io.Reader) error {
	if r.transformer == nil {
		return ErrNoTransformer
	}
	lr := &lineReader{br: bufio.NewReader(in)}
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := lr.next()
		if errors.Is(err, io.EOF) {
			logging.L().Debug("input drained", "lines", index)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line %d: %w", index, err)
		}
		r.metrics.IncRead()

		out, ok, err := r.transformer.Transform(ctx, line, index)
		if err != nil {
			r.metrics.IncTransformError()
			return fmt.Errorf("transform line %d: %w", index, err)
		}
		if !ok {
			continue
		}
		if err := r.push(out); err != nil {
			return fmt.Errorf("sink line %d: %w", index, err)
		}
	}
}

// lineReader splits input the way Node's readline does: a line ends at
// "\n", "\r\n" or a lone "\r". A final line lacking a terminator is still
// returned; io.EOF only comes once nothing is left.
type lineReader struct {
	br     *bufio.Reader
	skipLF bool // last line ended in "\r"; a leading "\n" belongs to it
}

func (lr *lineReader) next() (string, error) {
	var b strings.Builder
	for {
		c, err := lr.br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		if lr.skipLF {
			lr.skipLF = false
			if c == '\n' {
				continue
			}
		}
		switch c {
		case '\n':
			return b.String(), nil
		case '\r':
			lr.skipLF = true
			return b.String(), nil
		}
		b.WriteByte(c)
	}
}

// Close closes the transformer first, so exit-time output still reaches
// open sinks, then every sink.
func (r *Runner) Close() error {
	var errs []error
	if r.transformer != nil {
		if err := transform.Close(r.transformer); err != nil {
			errs = append(errs, fmt.Errorf("close transformer: %w", err))
		}
	}
	if err := r.closeSinks(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runner) closeSinks() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Discard tears down a runner that never ran: the transformer is released
// without its exit hooks, then every sink is closed.
func (r *Runner) Discard() error {
	var errs []error
	if r.transformer != nil {
		if err := transform.Discard(r.transformer); err != nil {
			errs = append(errs, fmt.Errorf("discard transformer: %w", err))
		}
	}
	if err := r.closeSinks(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
