package vassal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piku-host/piku/internal/procfile"
)

func baseSpec(kind, cmd string) Spec {
	return Spec{
		App:     "myapp",
		Kind:    kind,
		Ordinal: 1,
		Cmd:     cmd,
		AppPath: "/piku/apps/myapp",
		LogDir:  "/piku/logs/myapp",
		Env:     map[string]string{},
	}
}

func TestStaticHasNoVassal(t *testing.T) {
	ini, ok, err := Render(baseSpec(procfile.KindStatic, "public"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || ini != "" {
		t.Fatalf("expected no vassal for static, got ok=%v ini=%q", ok, ini)
	}
}

func TestWebKindUsesAttachDaemon(t *testing.T) {
	ini, ok, err := Render(baseSpec(procfile.KindWeb, "gunicorn app:app"))
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(ini, "attach-daemon = gunicorn app:app") {
		t.Fatalf("expected attach-daemon line, got:\n%s", ini)
	}
}

func TestWSGIKindSelectsSocketWhenNginxServerNamePresent(t *testing.T) {
	spec := baseSpec(procfile.KindWSGI, "app:app")
	spec.Env["NGINX_SERVER_NAME"] = "example.com"
	spec.Env["NGINX_ROOT"] = "/piku/nginx"
	ini, ok, err := Render(spec)
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(ini, "socket = /piku/nginx/myapp.sock") {
		t.Fatalf("expected unix socket binding, got:\n%s", ini)
	}
	if !strings.Contains(ini, "module = app:app") {
		t.Fatalf("expected module directive, got:\n%s", ini)
	}
}

func TestWSGIKindUsesHTTPSocketWithoutNginx(t *testing.T) {
	spec := baseSpec(procfile.KindWSGI, "app:app")
	spec.Env["PORT"] = "8000"
	ini, _, err := Render(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(ini, "http-socket = 127.0.0.1:8000") {
		t.Fatalf("expected http-socket fallback, got:\n%s", ini)
	}
}

func TestCronRenderUsesRewrittenSchedule(t *testing.T) {
	spec := baseSpec("cron1", "*/5 * * * * echo hi")
	ini, ok, err := Render(spec)
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(ini, "cron = -5 -1 -1 -1 -1 echo hi") {
		t.Fatalf("expected rewritten cron line, got:\n%s", ini)
	}
}

func TestUwsgiIdleAddsCheapDirectives(t *testing.T) {
	spec := baseSpec(procfile.KindWorker, "run.sh")
	spec.Env["UWSGI_IDLE"] = "300"
	ini, _, err := Render(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"idle = 300", "cheap = true", "die-on-idle = true"} {
		if !strings.Contains(ini, want) {
			t.Fatalf("expected %q in:\n%s", want, ini)
		}
	}
}

func TestReservedEnvKeysAreStripped(t *testing.T) {
	spec := baseSpec(procfile.KindWorker, "run.sh")
	spec.Env["PIKU_INTERNAL_SECRET"] = "x"
	spec.Env["NGINX_ACL"] = "y"
	spec.Env["REAL_KEY"] = "z"
	ini, _, err := Render(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(ini, "PIKU_INTERNAL_SECRET") || strings.Contains(ini, "NGINX_ACL") {
		t.Fatalf("expected reserved keys stripped, got:\n%s", ini)
	}
	if !strings.Contains(ini, "env = REAL_KEY=z") {
		t.Fatalf("expected REAL_KEY preserved, got:\n%s", ini)
	}
}

func TestWriteIsAtomicRenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	spec := baseSpec(procfile.KindWeb, "gunicorn app:app")
	path, err := Write(dir, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "myapp_web.1.ini") {
		t.Fatalf("unexpected path: %s", path)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestParseFileNameRoundTrip(t *testing.T) {
	name := FileName("myapp", "web", 2)
	kind, ordinal, ok := ParseFileName("myapp", name)
	if !ok || kind != "web" || ordinal != 2 {
		t.Fatalf("unexpected parse: kind=%s ordinal=%d ok=%v", kind, ordinal, ok)
	}
}

func TestParseFileNameRejectsOtherApps(t *testing.T) {
	name := FileName("otherapp", "web", 1)
	if _, _, ok := ParseFileName("myapp", name); ok {
		t.Fatalf("expected no match across apps")
	}
}

func TestListForAppGroupsByKind(t *testing.T) {
	dir := t.TempDir()
	refs := []struct {
		kind string
		ord  int
	}{{"web", 1}, {"web", 2}, {"worker", 1}}
	for _, ref := range refs {
		spec := Spec{App: "myapp", Kind: ref.kind, Ordinal: ref.ord, Cmd: "echo hi", AppPath: "/x", LogDir: "/l", Env: map[string]string{}}
		if _, err := Write(dir, spec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	result, err := ListForApp(dir, "myapp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result["web"][1] || !result["web"][2] || !result["worker"][1] {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestUnlinkIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := Unlink(dir, "myapp", "web", 1); err != nil {
		t.Fatalf("expected no error unlinking missing file, got: %v", err)
	}
}
