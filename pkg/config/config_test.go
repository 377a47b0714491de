package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpand(t *testing.T) {
	t.Setenv("CFG_SET", "value")
	t.Setenv("CFG_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"${CFG_SET}", "value"},
		{"$CFG_SET", "value"},
		{"${CFG_UNSET_XYZ}", ""},
		{"${CFG_UNSET_XYZ:-8080}", "8080"},
		{"${CFG_EMPTY:-fallback}", "fallback"},
		{"${CFG_SET:-fallback}", "value"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Expand(tt.in); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("CFG_PORT", "9000")
	path := writeFile(t, "name: tally\nport: ${CFG_PORT}\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "tally" || s.Port != 9000 {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoad_KeepsMissingKeys(t *testing.T) {
	path := writeFile(t, "name: other\n")
	s := sample{Name: "tally", Port: 8080}
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "other" || s.Port != 8080 {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoad_Errors(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeFile(t, "port: [1\n")
	if err := Load(path, &s); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}

	path = writeFile(t, "port: 0\n")
	if err := Load(path, &s); err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Port: 8080}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s); err != nil {
		t.Fatalf("missing file should keep defaults: %v", err)
	}
	if s.Port != 8080 {
		t.Errorf("port = %d", s.Port)
	}

	bad := sample{}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &bad); err == nil {
		t.Error("invalid defaults should still fail validation")
	}
}
