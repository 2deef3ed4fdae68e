// Package rust detects and builds Rust/Cargo projects (spec.md §4.4
// step 11).
package rust

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/piku-host/piku/internal/buildutil"
	"github.com/piku-host/piku/internal/detector"
)

// RegisterAll registers the Rust provider.
func RegisterAll(registry *detector.Registry) {
	registry.Register(&provider{detector.BaseProvider{ProviderName: "rust-cargo", ProviderLanguage: "rust"}})
}

type provider struct{ detector.BaseProvider }

func (p *provider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	return detector.HasFile(app.AppPath, "Cargo.toml") && detector.HasFile(app.AppPath, "rust-toolchain.toml"), nil
}

func (p *provider) RequiredBinaries() []string { return []string{"cargo"} }

func (p *provider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "Cargo.toml")
	targetDir := filepath.Join(app.EnvPath, "target")
	if detector.NewerThan(manifest, app.EnvPath) {
		env := []string{"CARGO_TARGET_DIR=" + targetDir}
		if err := buildutil.Run(ctx, app.AppPath, env, "cargo", "build", "--release"); err != nil {
			return nil, err
		}
		now := time.Now()
		os.MkdirAll(app.EnvPath, 0755)
		_ = os.Chtimes(app.EnvPath, now, now)
	}
	return []string{
		"CARGO_TARGET_DIR=" + targetDir,
		"PATH=" + filepath.Join(targetDir, "release") + ":" + os.Getenv("PATH"),
	}, nil
}
