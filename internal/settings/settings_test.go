package settings_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/piku-host/piku/internal/settings"
)

func TestExpandVars(t *testing.T) {
	dict := map[string]string{"A": "1"}
	if got := settings.ExpandVars("$A", dict); got != "1" {
		t.Errorf("got %q, want 1", got)
	}
	if got := settings.ExpandVars(`\$A`, dict); got != "$A" {
		t.Errorf("got %q, want literal $A", got)
	}
	if got := settings.ExpandVars("${A}", dict); got != "1" {
		t.Errorf("got %q, want 1", got)
	}
}

func TestParseExpandsAgainstAccumulatingDict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ENV")
	if err := os.WriteFile(path, []byte("A=1\nB=$A\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := settings.Parse(path, '=')
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"A": "1", "B": "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseEscapedDollar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ENV")
	if err := os.WriteFile(path, []byte("A=1\nB=\\$A\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := settings.Parse(path, '=')
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"A": "1", "B": "$A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseMalformedLineYieldsEmptyMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ENV")
	if err := os.WriteFile(path, []byte("A=1\nnotakeyvalue\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := settings.Parse(path, '=')
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty map", got)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ENV")
	data := map[string]string{"PORT": "5000", "NAME": "demo"}
	if err := settings.Write(path, '=', data, nil); err != nil {
		t.Fatal(err)
	}
	got, err := settings.Parse(path, '=')
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range data {
		if got[k] != v {
			t.Errorf("round-trip mismatch for %s: got %q, want %q", k, got[k], v)
		}
	}
}

func TestToMapSkipsMalformedEntries(t *testing.T) {
	got := settings.ToMap([]string{"PATH=/usr/bin", "noequals", "VIRTUAL_ENV=/app/env"})
	want := map[string]string{"PATH": "/usr/bin", "VIRTUAL_ENV": "/app/env"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseScalingSeparator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SCALING")
	if err := os.WriteFile(path, []byte("web:3\nworker:1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := settings.Parse(path, ':')
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"web": "3", "worker": "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
