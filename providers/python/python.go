// Package python detects and builds Python runtimes: pip+virtualenv
// (requirements.txt), Poetry, and uv (pyproject.toml), per spec.md §4.4
// steps 1-2. Provider shape kept from the teacher's providers/<lang>
// package-per-runtime convention; each Build drives the real toolchain
// instead of emitting a Dockerfile template.
package python

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/piku-host/piku/internal/buildutil"
	"github.com/piku-host/piku/internal/detector"
)

// RegisterAll registers the Python providers in spec.md §4.4 priority
// order: requirements.txt first, then pyproject.toml via poetry, then via
// uv.
func RegisterAll(registry *detector.Registry) {
	registry.Register(&requirementsProvider{detector.BaseProvider{ProviderName: "python-requirements", ProviderLanguage: "python"}})
	registry.Register(&poetryProvider{detector.BaseProvider{ProviderName: "python-poetry", ProviderLanguage: "python"}})
	registry.Register(&uvProvider{detector.BaseProvider{ProviderName: "python-uv", ProviderLanguage: "python"}})
}

type requirementsProvider struct{ detector.BaseProvider }

func (p *requirementsProvider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	return detector.HasFile(app.AppPath, "requirements.txt"), nil
}

func (p *requirementsProvider) RequiredBinaries() []string {
	return []string{"virtualenv", "pip"}
}

func (p *requirementsProvider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "requirements.txt")
	if _, err := os.Stat(app.EnvPath); err != nil {
		if err := buildutil.Run(ctx, app.AppPath, nil, "virtualenv", app.EnvPath); err != nil {
			return nil, err
		}
	}
	if detector.NewerThan(manifest, app.EnvPath) {
		pip := filepath.Join(app.EnvPath, "bin", "pip")
		if err := buildutil.Run(ctx, app.AppPath, nil, pip, "install", "-r", manifest); err != nil {
			return nil, err
		}
		touch(app.EnvPath)
	}
	return pythonEnv(app.EnvPath), nil
}

type poetryProvider struct{ detector.BaseProvider }

func (p *poetryProvider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	if !detector.HasFile(app.AppPath, "pyproject.toml") {
		return false, nil
	}
	return usesBuildBackend(app.AppPath, "poetry"), nil
}

func (p *poetryProvider) RequiredBinaries() []string { return []string{"poetry"} }

func (p *poetryProvider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "pyproject.toml")
	env := []string{"POETRY_VIRTUALENVS_PATH=" + filepath.Dir(app.EnvPath), "POETRY_VIRTUALENVS_IN_PROJECT=false"}
	if detector.NewerThan(manifest, app.EnvPath) {
		if err := buildutil.Run(ctx, app.AppPath, env, "poetry", "install", "--no-interaction", "--no-ansi"); err != nil {
			return nil, err
		}
		touch(app.EnvPath)
	}
	return pythonEnv(app.EnvPath), nil
}

type uvProvider struct{ detector.BaseProvider }

func (p *uvProvider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	if !detector.HasFile(app.AppPath, "pyproject.toml") {
		return false, nil
	}
	return !usesBuildBackend(app.AppPath, "poetry"), nil
}

func (p *uvProvider) RequiredBinaries() []string { return []string{"uv"} }

func (p *uvProvider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "pyproject.toml")
	if detector.NewerThan(manifest, app.EnvPath) {
		if err := buildutil.Run(ctx, app.AppPath, []string{"UV_PROJECT_ENVIRONMENT=" + app.EnvPath}, "uv", "sync", "--no-dev"); err != nil {
			return nil, err
		}
		touch(app.EnvPath)
	}
	return pythonEnv(app.EnvPath), nil
}

// usesBuildBackend does a simplified scan of pyproject.toml for a
// [tool.poetry] section, enough to distinguish the poetry branch from the
// uv branch of spec.md §4.4 step 2.
func usesBuildBackend(appPath, backend string) bool {
	data, err := os.ReadFile(filepath.Join(appPath, "pyproject.toml"))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "[tool."+backend+"]")
}

func pythonEnv(envPath string) []string {
	return []string{
		"VIRTUAL_ENV=" + envPath,
		"PATH=" + filepath.Join(envPath, "bin") + ":" + os.Getenv("PATH"),
		"PYTHONUNBUFFERED=1",
	}
}

// touch bumps envPath's mtime past the manifest's so NewerThan goes false
// until the manifest changes again.
func touch(dir string) {
	now := time.Now()
	_ = os.Chtimes(dir, now, now)
}
