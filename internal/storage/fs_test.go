package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("from_meta_name,to_meta_name\nT1,T2\n")
	if err := s.Write("lineage.csv", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("lineage.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.csv", []byte("a\n"))
	if err := s.Delete("del.csv"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.csv"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("b.csv", []byte("b"))
	_ = s.Write("a/DEFAULT_LINEAGE_MAP.yml", []byte("[]"))
	_ = s.Write("c.parquet", []byte("PAR1"))
	_ = s.Write("readme.txt", []byte("not a dataset"))
	_ = s.Write(".hidden/x.csv", []byte("x"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(items), items)
	}
	// Lexical order: a/..., b.csv, c.parquet.
	if items[0].ID != "a/DEFAULT_LINEAGE_MAP.yml" || items[0].Name != "DEFAULT_LINEAGE_MAP" || items[0].Format != FormatYAML {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Format != FormatCSV || items[2].Format != FormatParquet {
		t.Errorf("formats = %s, %s", items[1].Format, items[2].Format)
	}
	if items[1].Checksum == "" {
		t.Error("checksum should be populated")
	}
}

func TestFormatOf(t *testing.T) {
	cases := map[string]string{
		"x.csv":     FormatCSV,
		"x.CSV":     FormatCSV,
		"x.yml":     FormatYAML,
		"x.yaml":    FormatYAML,
		"x.json":    FormatJSON,
		"x.parquet": FormatParquet,
		"x.txt":     "",
	}
	for name, want := range cases {
		if got := FormatOf(name); got != want {
			t.Errorf("FormatOf(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.csv",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if _, err := s.Abs(p); err == nil {
			t.Errorf("expected error for abs of %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.csv", []byte("original"))
	if err := s.Write("atomic.csv", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.csv")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".lineagemap-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "lineagemap-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
