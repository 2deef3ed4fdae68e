package procfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piku-host/piku/internal/procfile"
)

func writeProcfile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Procfile")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWSGIPrecedenceOverWeb(t *testing.T) {
	path := writeProcfile(t, "wsgi: app:x\nweb: ./run\n")
	pf, err := procfile.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	kinds := pf.WorkerKinds()
	if len(kinds) != 1 || kinds[0] != "wsgi" {
		t.Errorf("got %v, want only [wsgi]", kinds)
	}
}

func TestPreflightAndReleaseNeverWorkers(t *testing.T) {
	path := writeProcfile(t, "web: ./run\npreflight: ./check.sh\nrelease: ./migrate.sh\n")
	pf, err := procfile.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range pf.WorkerKinds() {
		if k == "preflight" || k == "release" {
			t.Errorf("preflight/release leaked into worker kinds: %v", pf.WorkerKinds())
		}
	}
}

func TestCronValid(t *testing.T) {
	if err := procfile.ValidateCron("*/5 * * * * cmd"); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

func TestCronMinuteCeiling(t *testing.T) {
	if err := procfile.ValidateCron("*/60 * * * * cmd"); err == nil {
		t.Error("expected rejection of minute 60")
	}
}

func TestCronRewriteDoesNotTouchCommand(t *testing.T) {
	out, err := procfile.RewriteCronSchedule("*/5 * * * * echo *")
	if err != nil {
		t.Fatal(err)
	}
	want := "-5 -1 -1 -1 -1 echo *"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestDuplicateKindRejected(t *testing.T) {
	path := writeProcfile(t, "web: ./one\nweb: ./two\n")
	pf, err := procfile.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if pf.Commands["web"] != "./one" {
		t.Errorf("got %q, want first definition kept", pf.Commands["web"])
	}
}

func TestMissingProcfile(t *testing.T) {
	if _, err := procfile.Parse(filepath.Join(t.TempDir(), "Procfile")); err == nil {
		t.Error("expected error for missing Procfile")
	}
}
