// Package ruby detects and builds Ruby/Bundler runtimes (spec.md §4.4
// step 3).
package ruby

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/piku-host/piku/internal/buildutil"
	"github.com/piku-host/piku/internal/detector"
)

// RegisterAll registers the Ruby provider.
func RegisterAll(registry *detector.Registry) {
	registry.Register(&provider{detector.BaseProvider{ProviderName: "ruby-bundler", ProviderLanguage: "ruby"}})
}

type provider struct{ detector.BaseProvider }

func (p *provider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	return detector.HasFile(app.AppPath, "Gemfile"), nil
}

func (p *provider) RequiredBinaries() []string { return []string{"ruby", "gem", "bundle"} }

func (p *provider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "Gemfile")
	gemHome := filepath.Join(app.EnvPath, "gems")
	if detector.NewerThan(manifest, app.EnvPath) {
		env := []string{"GEM_HOME=" + gemHome, "BUNDLE_PATH=" + gemHome}
		if err := buildutil.Run(ctx, app.AppPath, env, "bundle", "install", "--path", gemHome); err != nil {
			return nil, err
		}
		now := time.Now()
		os.MkdirAll(app.EnvPath, 0755)
		_ = os.Chtimes(app.EnvPath, now, now)
	}
	return []string{
		"GEM_HOME=" + gemHome,
		"BUNDLE_PATH=" + gemHome,
		"PATH=" + filepath.Join(gemHome, "bin") + ":" + os.Getenv("PATH"),
	}, nil
}
