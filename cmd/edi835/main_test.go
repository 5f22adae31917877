package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edi835/config"
	"edi835/state"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(state.ContextWithEnv(context.Background()), append([]string{"edi835"}, args...))
	return out.String(), err
}

func TestDumpConfig_Default(t *testing.T) {
	out, err := runApp(t, "dumpconfig", "--default")
	if err != nil {
		t.Fatalf("dumpconfig error = %v", err)
	}
	want, err := config.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	if out != string(want) {
		t.Errorf("dumpconfig --default =\n%s\nwant\n%s", out, want)
	}
}

func TestDumpConfig_ToFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "actual.yaml")
	if _, err := runApp(t, "dumpconfig", dst); err != nil {
		t.Fatalf("dumpconfig error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"journal_mode: wal", "trace_transitions: false"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("actual configuration lacks %q:\n%s", want, data)
		}
	}
}

func TestInspect(t *testing.T) {
	out, err := runApp(t, "inspect", filepath.Join("..", "..", "load", "testdata", "sample.835"))
	if err != nil {
		t.Fatalf("inspect error = %v", err)
	}
	if !strings.Contains(out, "1 of 1 transaction(s)") || !strings.Contains(out, "loop 2000 #0") {
		t.Errorf("unexpected inspect output:\n%s", out)
	}
}

func TestLoad_MissingSource(t *testing.T) {
	if _, err := runApp(t, "load", filepath.Join(t.TempDir(), "missing.835")); err == nil {
		t.Error("expected error for missing source")
	}
}
