package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// trapReader fails the test if the pump ever reads from it.
type trapReader struct{ t *testing.T }

func (r trapReader) Read([]byte) (int, error) {
	r.t.Fatal("standard input was read")
	return 0, nil
}

func TestRun_MissingTransformerPrintsHelpWithoutReading(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, trapReader{t}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("want exit 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), "Usage:") || !strings.Contains(stdout.String(), "vowels") {
		t.Fatalf("help text missing:\n%s", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestRun_SyntaxErrorPrintsHelpAndError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"function (s {"}, trapReader{t}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("want exit 2, got %d", code)
	}
	if !strings.Contains(stdout.String(), "Usage:") {
		t.Fatalf("help text missing:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "ERROR: there's a syntax error in your function") ||
		!strings.Contains(stderr.String(), "function (s {") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestRun_VowelsTenLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"vowels"}, strings.NewReader(strings.Repeat("a\n", 10)), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("want exit 0, got %d (stderr %q)", code, stderr.String())
	}
	if got, want := stdout.String(), `{"a":10,"e":0,"i":0,"o":0,"total":10}`+"\n"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestRun_JSTransformerVerbatim(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{`function (s, i) { return i + "=" + s + "\n" }`}, strings.NewReader("x\ny"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("want exit 0, got %d (stderr %q)", code, stderr.String())
	}
	if got := stdout.String(); got != "0=x\n1=y\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRun_ArrowFunctionOverCRInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{`(s, i) => i + ":" + s.toUpperCase() + "\n"`}, strings.NewReader("a\rb\r\nc"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("want exit 0, got %d (stderr %q)", code, stderr.String())
	}
	if got := stdout.String(); got != "0:A\n1:B\n2:C\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRun_ScriptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "count.js")
	src := `
var total = 0;
process.on("exit", function () { console.log(JSON.stringify({total: total})); });
module.exports = function (s) { total += s.length; };
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	var stdout, stderr bytes.Buffer
	code := run([]string{"-f", path}, strings.NewReader("abc\nde\n"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("want exit 0, got %d (stderr %q)", code, stderr.String())
	}
	if got := stdout.String(); got != `{"total":5}`+"\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRun_TransformerFailureExitsNonZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{`function (s) { if (s === "bad") throw new Error("nope"); return s }`},
		strings.NewReader("ok\nbad\nlater\n"), &stdout, &stderr)
	if code != 1 {
		t.Fatalf("want exit 1, got %d", code)
	}
	if stdout.String() != "ok" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "nope") {
		t.Fatalf("error not reported: %q", stderr.String())
	}
}

func TestRun_ConfigFileSuppliesTransformer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linepump.yml")
	if err := os.WriteFile(path, []byte("transformer:\n  spec: upper\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", path}, strings.NewReader("hi\n"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("want exit 0, got %d (stderr %q)", code, stderr.String())
	}
	if stdout.String() != "HI\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestRun_PrintConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-print-config", "vowels"}, trapReader{t}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("want exit 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), "spec: vowels") {
		t.Fatalf("effective config missing transformer:\n%s", stdout.String())
	}
}
