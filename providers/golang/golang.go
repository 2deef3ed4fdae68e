// Package golang detects and builds Go module/GOPATH projects (spec.md
// §4.4 step 7).
package golang

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/piku-host/piku/internal/buildutil"
	"github.com/piku-host/piku/internal/detector"
)

// RegisterAll registers the Go provider.
func RegisterAll(registry *detector.Registry) {
	registry.Register(&provider{detector.BaseProvider{ProviderName: "go-modules", ProviderLanguage: "go"}})
}

type provider struct{ detector.BaseProvider }

func (p *provider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	if detector.HasFile(app.AppPath, "Godeps") || detector.HasFile(app.AppPath, "go.mod") {
		return true, nil
	}
	return detector.HasAnyGoFile(app.AppPath), nil
}

func (p *provider) RequiredBinaries() []string { return []string{"go"} }

func (p *provider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	gopath := filepath.Join(app.EnvPath, "gopath")
	manifestCandidates := []string{"go.mod", "Godeps"}
	manifest := filepath.Join(app.AppPath, "go.mod")
	for _, c := range manifestCandidates {
		if detector.HasFile(app.AppPath, c) {
			manifest = filepath.Join(app.AppPath, c)
			break
		}
	}

	if detector.NewerThan(manifest, app.EnvPath) {
		binDir := filepath.Join(app.EnvPath, "bin")
		os.MkdirAll(binDir, 0755)
		env := []string{"GOPATH=" + gopath, "GOBIN=" + binDir, "CGO_ENABLED=0"}
		if err := buildutil.Run(ctx, app.AppPath, env, "go", "build", "-o", filepath.Join(binDir, "app"), "."); err != nil {
			return nil, err
		}
		now := time.Now()
		_ = os.Chtimes(app.EnvPath, now, now)
	}

	return []string{
		"GOPATH=" + gopath,
		"PATH=" + filepath.Join(app.EnvPath, "bin") + ":" + os.Getenv("PATH"),
	}, nil
}
