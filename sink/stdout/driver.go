package stdout

import (
	"fmt"
	"io"
	"os"

	"linepump/sink"
)

type Config struct {
	Out io.Writer // os.Stdout when nil
}

// driver writes unbuffered so its output interleaves correctly with
// anything else the transformer prints to the same stream.
type driver struct {
	out io.Writer
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.out = c.Out
	if d.out == nil {
		d.out = os.Stdout
	}
	return nil
}

func (d *driver) Push(out string) error {
	if out == "" {
		return nil
	}
	_, err := io.WriteString(d.out, out)
	return err
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
