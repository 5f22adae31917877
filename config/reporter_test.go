package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestReport_Archive(t *testing.T) {
	tmp := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(tmp, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	stored := filepath.Join(tmp, "input.835")
	if err := os.WriteFile(stored, []byte("ISA~"), 0644); err != nil {
		t.Fatal(err)
	}
	copied := filepath.Join(tmp, "out.sqlite")
	if err := os.WriteFile(copied, []byte("before"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("source-10", stored)
	r.StoreData("config.yaml", []byte("version: 1\n"))
	if err := r.StoreCopy("source-2", copied); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	// later changes are not visible in the copy
	if err := os.WriteFile(copied, []byte("after"), 0644); err != nil {
		t.Fatal(err)
	}
	r.Store("missing", filepath.Join(tmp, "does-not-exist"))

	copies := append([]string(nil), r.copies...)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := readArchive(t, conf.Destination)
	if files["source-10"] != "ISA~" {
		t.Errorf("source-10 = %q", files["source-10"])
	}
	if files["source-2"] != "before" {
		t.Errorf("source-2 = %q, want copy made at StoreCopy time", files["source-2"])
	}
	if files["config.yaml"] != "version: 1\n" {
		t.Errorf("config.yaml = %q", files["config.yaml"])
	}
	if _, ok := files["missing"]; ok {
		t.Error("absent file should be skipped")
	}

	// natural order in manifest: source-2 before source-10
	m := files["MANIFEST"]
	if i, j := strings.Index(m, "\tsource-2\t"), strings.Index(m, "\tsource-10\t"); i < 0 || j < 0 || i > j {
		t.Errorf("unexpected manifest order:\n%s", m)
	}

	for _, dir := range copies {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("temporary copy %s was not removed", dir)
		}
	}
}

func TestReport_StoreCopyDir(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "dbs")
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "a.sqlite"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	conf := ReporterConfig{Destination: filepath.Join(tmp, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := r.StoreCopy("out", src); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := readArchive(t, conf.Destination)
	if files["out/sub/a.sqlite"] != "a" {
		t.Errorf("directory content missing, got %v", files)
	}
}

func TestReport_OverwritePanics(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.Store("a", "/tmp/one")
	r.Store("a", "/tmp/one")

	defer func() {
		if recover() == nil {
			t.Error("expected panic on overwrite")
		}
	}()
	r.Store("a", "/tmp/two")
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	r.Store("x", "y")
	r.StoreData("x", nil)
	if err := r.StoreCopy("x", "y"); err != nil {
		t.Errorf("StoreCopy on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Error("nil report should have empty name")
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
