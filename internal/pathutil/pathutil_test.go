package pathutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piku-host/piku/internal/pathutil"
	"github.com/piku-host/piku/internal/pikuconfig"
)

func TestSanitizeIsIdempotentAndClosed(t *testing.T) {
	cases := []string{
		"my-app",
		"/my-app",
		"  my.app_1  ",
		"weird$name!@#",
		"../../etc/passwd",
	}
	for _, c := range cases {
		once := pathutil.Sanitize(c)
		twice := pathutil.Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize(%q) not idempotent: %q != %q", c, once, twice)
		}
		for _, r := range once {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-') {
				t.Errorf("Sanitize(%q) produced disallowed rune %q", c, r)
			}
		}
	}
}

func TestRequireAppMissing(t *testing.T) {
	root := t.TempDir()
	cfg := pikuconfig.Default()
	cfg.Root = root
	if err := cfg.EnsureTree(); err != nil {
		t.Fatal(err)
	}

	if _, err := pathutil.RequireApp(cfg, "ghost"); err == nil {
		t.Fatal("expected error for missing app")
	}
}

func TestRequireAppPresent(t *testing.T) {
	root := t.TempDir()
	cfg := pikuconfig.Default()
	cfg.Root = root
	if err := cfg.EnsureTree(); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.AppsDir(), "demo"), 0755); err != nil {
		t.Fatal(err)
	}

	app, err := pathutil.RequireApp(cfg, "/demo")
	if err != nil {
		t.Fatal(err)
	}
	if app != "demo" {
		t.Errorf("got %q, want demo", app)
	}
}
