package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"linepump/internal/logging"
	"linepump/internal/pipeline"
	"linepump/internal/spec"
	_ "linepump/internal/tally" // registers the "vowels" builtin
	"linepump/internal/telemetry"
	"linepump/internal/transform"
	"linepump/sink"
	"linepump/sink/kafka"
	"linepump/sink/stdout"
)

// ErrBadTransformer marks failures to turn the transformer argument into a
// callable; the CLI answers them with the help text.
var ErrBadTransformer = errors.New("invalid transformer")

type Config struct {
	Pipeline spec.File
	Script   string    // JS program source; replaces Pipeline.Transformer.Spec when set
	Stdout   io.Writer // os.Stdout when nil
}

func Bootstrap(cfg Config) (*Engine, error) {
	out := cfg.Stdout
	if out == nil {
		out = os.Stdout
	}

	// 1. metrics
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)

	// 2. transformer
	tr, err := buildTransformer(cfg, out, m)
	if err != nil {
		return nil, err
	}

	// 3. pipeline runner
	runner := pipeline.NewRunner()
	runner.SetTransformer(tr)
	runner.SetMetrics(m)
	for _, name := range cfg.Pipeline.Sinks {
		s, err := buildSink(name, cfg.Pipeline, out)
		if err != nil {
			_ = runner.Discard()
			return nil, fmt.Errorf("sink %s: %w", name, err)
		}
		runner.AddSink(s)
	}

	// 4. metrics endpoint
	var srv *telemetry.Server
	if addr := cfg.Pipeline.Metrics.Addr; addr != "" {
		if srv, err = telemetry.Listen(addr, reg); err != nil {
			_ = runner.Discard()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		logging.L().Info("metrics listening", "addr", srv.Addr())
	}

	logging.L().Info("pump ready", "sinks", cfg.Pipeline.Sinks)
	return &Engine{
		runner:  runner,
		metrics: m,
		server:  srv,
	}, nil
}

func buildTransformer(cfg Config, out io.Writer, m *telemetry.Metrics) (transform.Transformer, error) {
	tc := cfg.Pipeline.Transformer
	if cfg.Script != "" {
		tr, err := transform.NewJSProgram(cfg.Script, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadTransformer, err)
		}
		return tr, nil
	}
	if tc.Spec == "" {
		return nil, pipeline.ErrNoTransformer
	}
	tr, err := transform.Parse(tc.Spec, transform.Env{
		Out:        out,
		FlushEvery: cfg.Pipeline.Tally.FlushEvery,
		Timeout:    time.Duration(tc.TimeoutMS) * time.Millisecond,
		OnFlush:    m.IncFlush,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadTransformer, err)
	}
	return tr, nil
}

func buildSink(name string, p spec.File, out io.Writer) (sink.Adapter, error) {
	s, err := sink.NewAdapter(name)
	if err != nil {
		return nil, err
	}
	switch name {
	case "stdout":
		err = s.Configure(stdout.Config{Out: out})
	case "kafka":
		err = s.Configure(kafka.Config{
			Brokers: p.Kafka.Brokers,
			Topic:   p.Kafka.Topic,
			Acks:    p.Kafka.RequiredAcks,
		})
	default:
		err = fmt.Errorf("no config block for sink %q", name)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
