package engine

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"linepump/internal/pipeline"
	"linepump/internal/spec"
)

func pipelineFor(transformer string) spec.File {
	return spec.File{
		SchemaVersion: "v1",
		Transformer:   spec.TransformerSpec{Spec: transformer, TimeoutMS: 1000},
		Tally:         spec.TallySpec{FlushEvery: 10},
		Sinks:         []string{"stdout"},
	}
}

func TestEngine_VowelsPeriodicAndExitFlush(t *testing.T) {
	var out bytes.Buffer
	e, err := Bootstrap(Config{Pipeline: pipelineFor("vowels"), Stdout: &out})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	in := strings.Repeat("a\n", 12)
	if err := e.Run(context.Background(), strings.NewReader(in)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := `{"a":10,"e":0,"i":0,"o":0,"total":10}` + "\n" +
		`{"a":2,"e":0,"i":0,"o":0,"total":2}` + "\n"
	if out.String() != want {
		t.Fatalf("want %q, got %q", want, out.String())
	}
	if got := testutil.ToFloat64(e.metrics.TallyFlushes); got != 2 {
		t.Fatalf("want 2 flushes, got %f", got)
	}
	if got := testutil.ToFloat64(e.metrics.LinesRead); got != 12 {
		t.Fatalf("want 12 lines read, got %f", got)
	}
}

func TestEngine_TenLinesNoExitFlush(t *testing.T) {
	var out bytes.Buffer
	e, err := Bootstrap(Config{Pipeline: pipelineFor("vowels"), Stdout: &out})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := e.Run(context.Background(), strings.NewReader(strings.Repeat("a\n", 10))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Count(out.String(), "\n"); got != 1 {
		t.Fatalf("want exactly one flush, got %q", out.String())
	}
}

func TestEngine_JSExpressionWritesVerbatim(t *testing.T) {
	var out bytes.Buffer
	e, err := Bootstrap(Config{
		Pipeline: pipelineFor(`function (s, i) { return i % 2 ? undefined : s.toUpperCase() }`),
		Stdout:   &out,
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := e.Run(context.Background(), strings.NewReader("a\nb\nc\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "AC" {
		t.Fatalf("want %q, got %q", "AC", out.String())
	}
}

func TestEngine_ScriptExitHookRunsOnFailure(t *testing.T) {
	script := `
var n = 0;
process.on("exit", function () { console.log("seen " + n); });
module.exports = function (s) { n++; if (s === "boom") { throw new Error("boom"); } };
`
	var out bytes.Buffer
	e, err := Bootstrap(Config{Pipeline: pipelineFor(""), Script: script, Stdout: &out})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	err = e.Run(context.Background(), strings.NewReader("ok\nboom\nnever\n"))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("want boom error, got %v", err)
	}
	if out.String() != "seen 2\n" {
		t.Fatalf("exit hook output %q", out.String())
	}
}

func TestBootstrap_BadTransformer(t *testing.T) {
	_, err := Bootstrap(Config{Pipeline: pipelineFor("function (s {"), Stdout: &bytes.Buffer{}})
	if !errors.Is(err, ErrBadTransformer) {
		t.Fatalf("want ErrBadTransformer, got %v", err)
	}
}

func TestBootstrap_NoTransformer(t *testing.T) {
	_, err := Bootstrap(Config{Pipeline: pipelineFor(""), Stdout: &bytes.Buffer{}})
	if !errors.Is(err, pipeline.ErrNoTransformer) {
		t.Fatalf("want ErrNoTransformer, got %v", err)
	}
}

func TestBootstrap_UnknownSink(t *testing.T) {
	p := pipelineFor("identity")
	p.Sinks = []string{"stdout", "carrier-pigeon"}
	if _, err := Bootstrap(Config{Pipeline: p, Stdout: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unknown sink")
	}
}

func TestBootstrap_FailedSetupSkipsExitHooks(t *testing.T) {
	script := `
process.on("exit", function () { console.log("exit hook ran"); });
module.exports = function (s) { return s; };
`
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	cases := map[string]func(*spec.File){
		"unknown sink":   func(p *spec.File) { p.Sinks = []string{"stdout", "carrier-pigeon"} },
		"metrics in use": func(p *spec.File) { p.Metrics.Addr = busy.Addr().String() },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := pipelineFor("")
			mutate(&p)
			var out bytes.Buffer
			if _, err := Bootstrap(Config{Pipeline: p, Script: script, Stdout: &out}); err == nil {
				t.Fatal("expected bootstrap error")
			}
			if out.Len() != 0 {
				t.Fatalf("exit hook wrote %q before any input was read", out.String())
			}
		})
	}
}

func TestEngine_WithMetricsServer(t *testing.T) {
	p := pipelineFor("identity")
	p.Metrics.Addr = "127.0.0.1:0"
	var out bytes.Buffer
	e, err := Bootstrap(Config{Pipeline: p, Stdout: &out})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := e.Run(context.Background(), strings.NewReader("x\ny")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "x\ny\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
