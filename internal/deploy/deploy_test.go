package deploy_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/piku-host/piku/internal/deploy"
	"github.com/piku-host/piku/internal/pikuconfig"
	"github.com/piku-host/piku/internal/settings"
)

func staticFixture(t *testing.T) (pikuconfig.Config, string) {
	t.Helper()
	cfg := pikuconfig.Default()
	cfg.Root = t.TempDir()
	if err := cfg.EnsureTree(); err != nil {
		t.Fatal(err)
	}

	app := "demo"
	appPath := cfg.AppPath(app)
	if err := os.MkdirAll(filepath.Join(appPath, "public"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(appPath, "Procfile"), []byte("static: public\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return cfg, app
}

func TestDeployStaticAppWritesLiveEnvAndScalingButNoVassal(t *testing.T) {
	cfg, app := staticFixture(t)

	if err := deploy.New(cfg).Deploy(context.Background(), app, ""); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.EnvPath(app), "LIVE_ENV")); err != nil {
		t.Errorf("expected LIVE_ENV to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.EnvPath(app), "SCALING")); err != nil {
		t.Errorf("expected SCALING to exist: %v", err)
	}

	entries, err := os.ReadDir(cfg.UwsgiEnabledDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("static worker should produce no vassal file, found %v", entries)
	}
}

func TestDeployAllocatesPortIntoLiveEnv(t *testing.T) {
	cfg, app := staticFixture(t)

	if err := deploy.New(cfg).Deploy(context.Background(), app, ""); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	live, err := settings.Parse(filepath.Join(cfg.EnvPath(app), "LIVE_ENV"), '=')
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(live["PORT"])
	if err != nil || port <= 0 {
		t.Fatalf("expected a nonzero PORT in LIVE_ENV, got %q", live["PORT"])
	}
}

func TestDeployWSGIWithServerNameWiresNginxRootAndTLS(t *testing.T) {
	if _, err := exec.LookPath("openssl"); err != nil {
		t.Skip("openssl not on PATH")
	}

	cfg := pikuconfig.Default()
	cfg.Root = t.TempDir()
	if err := cfg.EnsureTree(); err != nil {
		t.Fatal(err)
	}

	app := "demo"
	appPath := cfg.AppPath(app)
	if err := os.MkdirAll(appPath, 0755); err != nil {
		t.Fatal(err)
	}
	// "release"+"web" satisfies the identity (no-build) provider; the wsgi
	// line rides along as the actual supervised worker, since WorkerKinds
	// drops "web" whenever a WSGI-style kind is also present.
	procfileBody := "release: true\nweb: true\nwsgi: app:app\n"
	if err := os.WriteFile(filepath.Join(appPath, "Procfile"), []byte(procfileBody), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(appPath, "ENV"), []byte("NGINX_SERVER_NAME=example.test\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := deploy.New(cfg).Deploy(context.Background(), app, ""); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	keyPath := filepath.Join(cfg.NginxDir(), "demo.key")
	crtPath := filepath.Join(cfg.NginxDir(), "demo.crt")
	if _, err := os.Stat(keyPath); err != nil {
		t.Errorf("expected self-signed key at %s: %v", keyPath, err)
	}
	if _, err := os.Stat(crtPath); err != nil {
		t.Errorf("expected self-signed cert at %s: %v", crtPath, err)
	}

	conf, err := os.ReadFile(filepath.Join(cfg.NginxDir(), "demo.conf"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(conf), "ssl_certificate_key "+keyPath+";") {
		t.Errorf("expected conf to reference %s, got:\n%s", keyPath, conf)
	}

	ini, err := os.ReadFile(filepath.Join(cfg.UwsgiEnabledDir(), "demo_wsgi.1.ini"))
	if err != nil {
		t.Fatal(err)
	}
	wantSocket := "socket = " + filepath.Join(cfg.NginxDir(), "demo.sock")
	if !strings.Contains(string(ini), wantSocket) {
		t.Errorf("expected vassal socket to use NGINX_ROOT, got:\n%s", ini)
	}
}

func TestDeployMissingProcfileFails(t *testing.T) {
	cfg := pikuconfig.Default()
	cfg.Root = t.TempDir()
	if err := cfg.EnsureTree(); err != nil {
		t.Fatal(err)
	}
	app := "empty"
	if err := os.MkdirAll(cfg.AppPath(app), 0755); err != nil {
		t.Fatal(err)
	}

	if err := deploy.New(cfg).Deploy(context.Background(), app, ""); err == nil {
		t.Fatal("expected an error for a missing Procfile")
	}
}

func TestStopAllRemovesEnabledVassalsButKeepsScaling(t *testing.T) {
	cfg := pikuconfig.Default()
	cfg.Root = t.TempDir()
	if err := cfg.EnsureTree(); err != nil {
		t.Fatal(err)
	}
	app := "demo"
	appPath := cfg.AppPath(app)
	if err := os.MkdirAll(appPath, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(appPath, "Procfile"), []byte("worker: run.sh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(cfg.EnvPath(app), 0755); err != nil {
		t.Fatal(err)
	}
	scalingPath := filepath.Join(cfg.EnvPath(app), "SCALING")
	if err := os.WriteFile(scalingPath, []byte("worker:1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	iniPath := filepath.Join(cfg.UwsgiEnabledDir(), "demo_worker.1.ini")
	if err := os.WriteFile(iniPath, []byte("[uwsgi]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	d := deploy.New(cfg)
	if err := d.StopAll(app); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(iniPath); !os.IsNotExist(err) {
		t.Errorf("expected vassal to be unlinked, stat err = %v", err)
	}
	if _, err := os.Stat(scalingPath); err != nil {
		t.Errorf("expected SCALING to be kept, stat err = %v", err)
	}
}
