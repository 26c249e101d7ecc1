package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Level string `yaml:"level"`
}

type validated struct {
	Port int `yaml:"port"`
}

var errPort = errors.New("port required")

func (v *validated) Validate() error {
	if v.Port == 0 {
		return errPort
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_KeepsDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("CFG_TEST_NAME", "lineage")
	p := writeFile(t, "name: ${CFG_TEST_NAME}\nlevel: ${CFG_TEST_UNSET:-info}\n")

	got := sample{Port: 8080}
	if err := Load(p, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "lineage" || got.Level != "info" || got.Port != 8080 {
		t.Errorf("got %+v", got)
	}
}

func TestLoad_RunsValidator(t *testing.T) {
	p := writeFile(t, "port: 0\n")
	var v validated
	if err := Load(p, &v); !errors.Is(err, errPort) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestExpand(t *testing.T) {
	t.Setenv("CFG_TEST_SET", "x")
	t.Setenv("CFG_TEST_EMPTY", "")
	cases := map[string]string{
		"${CFG_TEST_SET}":          "x",
		"$CFG_TEST_SET":            "x",
		"${CFG_TEST_SET:-y}":       "x",
		"${CFG_TEST_EMPTY:-y}":     "y",
		"${CFG_TEST_MISSING}":      "",
		"${CFG_TEST_MISSING:-a b}": "a b",
	}
	for in, want := range cases {
		if got := Expand(in); got != want {
			t.Errorf("Expand(%q) = %q, want %q", in, got, want)
		}
	}
}
