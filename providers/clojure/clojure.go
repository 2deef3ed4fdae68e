// Package clojure detects and builds Clojure projects via the Clojure CLI
// (deps.edn) or Leiningen (project.clj), spec.md §4.4 steps 8-9.
package clojure

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/piku-host/piku/internal/buildutil"
	"github.com/piku-host/piku/internal/detector"
)

// RegisterAll registers the Clojure CLI provider then Leiningen, in
// spec.md's priority order.
func RegisterAll(registry *detector.Registry) {
	registry.Register(&cliProvider{detector.BaseProvider{ProviderName: "clojure-cli", ProviderLanguage: "clojure"}})
	registry.Register(&leinProvider{detector.BaseProvider{ProviderName: "clojure-lein", ProviderLanguage: "clojure"}})
}

type cliProvider struct{ detector.BaseProvider }

func (p *cliProvider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	return detector.HasFile(app.AppPath, "deps.edn"), nil
}

func (p *cliProvider) RequiredBinaries() []string { return []string{"clojure"} }

func (p *cliProvider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "deps.edn")
	if detector.NewerThan(manifest, app.EnvPath) {
		if err := buildutil.Run(ctx, app.AppPath, nil, "clojure", "-P"); err != nil {
			return nil, err
		}
		touch(app.EnvPath)
	}
	return nil, nil
}

type leinProvider struct{ detector.BaseProvider }

func (p *leinProvider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	return detector.HasFile(app.AppPath, "project.clj"), nil
}

func (p *leinProvider) RequiredBinaries() []string { return []string{"lein"} }

func (p *leinProvider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "project.clj")
	if detector.NewerThan(manifest, app.EnvPath) {
		if err := buildutil.Run(ctx, app.AppPath, nil, "lein", "deps"); err != nil {
			return nil, err
		}
		touch(app.EnvPath)
	}
	return nil, nil
}

func touch(dir string) {
	now := time.Now()
	os.MkdirAll(dir, 0755)
	_ = os.Chtimes(dir, now, now)
}
