// Package php detects the PHP runtime, which is declared by the Procfile
// itself rather than by a manifest file (spec.md §4.4 step 10): a `php:`
// Procfile entry selects this provider, and uwsgi_php supervises it
// directly against the app's working tree (spec.md §4.6) — there is no
// build step.
package php

import (
	"context"

	"github.com/piku-host/piku/internal/detector"
	"github.com/piku-host/piku/internal/procfile"
)

// RegisterAll registers the PHP provider.
func RegisterAll(registry *detector.Registry) {
	registry.Register(&provider{detector.BaseProvider{ProviderName: "php", ProviderLanguage: "php"}})
}

type provider struct{ detector.BaseProvider }

func (p *provider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	return app.Procfile != nil && app.Procfile.Has(procfile.KindPHP), nil
}

func (p *provider) RequiredBinaries() []string { return []string{"uwsgi_php"} }

func (p *provider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	return nil, nil
}
