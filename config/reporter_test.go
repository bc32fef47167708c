package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func preparedReport(t *testing.T) *Report {
	t.Helper()
	conf := &ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	return r
}

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open report archive: %v", err)
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

func TestReport_StoreAndFinalize(t *testing.T) {
	r := preparedReport(t)

	srcPath := filepath.Join(t.TempDir(), "source.html")
	if err := os.WriteFile(srcPath, []byte("<p>hi</p>"), 0644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	r.Store("source.html", srcPath)
	r.StoreData("final.html", []byte("<html></html>"))

	name := r.Name()
	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}

	files := readArchive(t, name)
	if files["source.html"] != "<p>hi</p>" {
		t.Errorf("source entry = %q", files["source.html"])
	}
	if files["final.html"] != "<html></html>" {
		t.Errorf("data entry = %q", files["final.html"])
	}
	manifest, ok := files["MANIFEST"]
	if !ok {
		t.Fatal("MANIFEST missing from the archive")
	}
	for _, want := range []string{"source.html", "final.html"} {
		if !strings.Contains(manifest, want) {
			t.Errorf("MANIFEST misses %q", want)
		}
	}
}

func TestReport_AbsentFilesSkipped(t *testing.T) {
	r := preparedReport(t)

	r.Store("gone.html", filepath.Join(t.TempDir(), "no-such-file.html"))

	name := r.Name()
	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}

	files := readArchive(t, name)
	if _, exists := files["gone.html"]; exists {
		t.Error("absent files should be skipped, not archived")
	}
	if !strings.Contains(files["MANIFEST"], "gone.html") {
		t.Error("MANIFEST should still mention the stored name")
	}
}

func TestReport_StoreDataVersionsDuplicates(t *testing.T) {
	r := preparedReport(t)

	r.StoreData("snap.html", []byte("one"))
	r.StoreData("snap.html", []byte("two"))

	name := r.Name()
	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}

	files := readArchive(t, name)
	count := 0
	for n := range files {
		if strings.HasPrefix(n, "snap.html") {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected both snapshots archived, got %d", count)
	}
}

func TestReport_StoreSamePathTwice(t *testing.T) {
	r := preparedReport(t)

	path := filepath.Join(t.TempDir(), "file.html")
	r.Store("file.html", path)
	r.Store("file.html", path)

	defer func() {
		if p := recover(); p != nil {
			t.Errorf("storing the same path twice should not panic: %v", p)
		}
	}()
	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}
}

func TestReport_StoreConflictPanics(t *testing.T) {
	r := preparedReport(t)
	defer r.Close()

	r.Store("file.html", filepath.Join(t.TempDir(), "one.html"))
	defer func() {
		if recover() == nil {
			t.Error("conflicting path for the same name should panic")
		}
	}()
	r.Store("file.html", filepath.Join(t.TempDir(), "two.html"))
}

func TestReport_NilReceiver(t *testing.T) {
	var r *Report
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Error("Name on nil report should be empty")
	}
	r.Store("x", "y")
	r.StoreData("x", []byte("y"))
}

func TestReport_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
