package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"linepump/internal/config"
	"linepump/internal/engine"
	"linepump/internal/logging"
	"linepump/internal/transform"
)

//go:embed usage.txt
var docs string

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// rtfm prints the help text, and the error (if any) to stderr.
func rtfm(stdout, stderr io.Writer, msg string) {
	fmt.Fprint(stdout, docs)
	fmt.Fprintf(stdout, "\nBuiltins: %s\n", strings.Join(transform.Names(), ", "))
	if msg != "" {
		fmt.Fprintln(stderr, msg)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("linepump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "YAML configuration file")
	scriptPath := fs.String("f", "", "JavaScript file defining the transformer")
	printCfg := fs.Bool("print-config", false, "print the effective configuration and exit")
	fs.Usage = func() { rtfm(stdout, stderr, "") }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "linepump: %v\n", err)
		return 1
	}
	logging.Configure(logging.FromEnv(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Writer: stderr,
	}))

	// positional argument > -f > config spec > config script_file
	spec, script := fs.Arg(0), *scriptPath
	if spec == "" && script == "" {
		spec, script = cfg.Transformer.Spec, cfg.Transformer.ScriptFile
	}
	if spec != "" {
		script = ""
	}
	cfg.Transformer.Spec = spec
	cfg.Transformer.ScriptFile = script

	if *printCfg {
		b, err := config.Dump(cfg)
		if err != nil {
			fmt.Fprintf(stderr, "linepump: %v\n", err)
			return 1
		}
		_, _ = stdout.Write(b)
		return 0
	}

	if spec == "" && script == "" {
		rtfm(stdout, stderr, "")
		return 0
	}

	var src string
	if script != "" {
		b, err := os.ReadFile(script)
		if err != nil {
			rtfm(stdout, stderr, fmt.Sprintf("ERROR: cannot read %s\n%v", script, err))
			return 2
		}
		src = string(b)
	}

	e, err := engine.Bootstrap(engine.Config{Pipeline: cfg, Script: src, Stdout: stdout})
	if errors.Is(err, engine.ErrBadTransformer) {
		code := spec
		if code == "" {
			code = script
		}
		rtfm(stdout, stderr, fmt.Sprintf("ERROR: there's a syntax error in your function\n%v\n%s", err, code))
		return 2
	}
	if err != nil {
		logging.L().Error("bootstrap", "err", err)
		return 1
	}

	if err := e.Run(context.Background(), stdin); err != nil {
		logging.L().Error("linepump", "err", err)
		return 1
	}
	return 0
}
