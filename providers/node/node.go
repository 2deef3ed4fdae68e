// Package node detects and builds Node.js runtimes via npm, optionally
// inside a nodeenv-managed interpreter (spec.md §4.4 step 4).
package node

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/piku-host/piku/internal/buildutil"
	"github.com/piku-host/piku/internal/detector"
)

// RegisterAll registers the Node provider.
func RegisterAll(registry *detector.Registry) {
	registry.Register(&provider{detector.BaseProvider{ProviderName: "node-npm", ProviderLanguage: "node"}})
}

type provider struct{ detector.BaseProvider }

func (p *provider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	return detector.HasFile(app.AppPath, "package.json"), nil
}

func (p *provider) RequiredBinaries() []string {
	bin := "node"
	if _, err := exec.LookPath("node"); err != nil {
		bin = "nodejs"
	}
	return []string{bin, "npm"}
}

func (p *provider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "package.json")
	nodeModules := filepath.Join(app.EnvPath, "node_modules")

	if nodeVersion, ok := app.Env["NODE_VERSION"]; ok && nodeVersion != "" {
		if _, err := exec.LookPath("nodeenv"); err == nil {
			if _, err := os.Stat(app.EnvPath); err != nil {
				if err := buildutil.Run(ctx, app.AppPath, nil, "nodeenv", "--node="+nodeVersion, app.EnvPath); err != nil {
					return nil, err
				}
			}
		}
	}

	if detector.NewerThan(manifest, app.EnvPath) {
		env := []string{"NODE_PATH=" + nodeModules}
		if err := buildutil.Run(ctx, app.AppPath, env, "npm", "install", "--prefix", app.EnvPath, "--production"); err != nil {
			return nil, err
		}
		now := time.Now()
		os.MkdirAll(app.EnvPath, 0755)
		_ = os.Chtimes(app.EnvPath, now, now)
	}

	return []string{
		"NODE_PATH=" + nodeModules,
		"PATH=" + filepath.Join(app.EnvPath, "bin") + ":" + os.Getenv("PATH"),
	}, nil
}
