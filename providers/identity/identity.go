// Package identity is the no-build fallback (spec.md §4.4 step 12): a
// Procfile that is both "release" and "web", or that declares "static",
// needs no toolchain — the working tree is deployed as-is.
package identity

import (
	"context"

	"github.com/piku-host/piku/internal/detector"
	"github.com/piku-host/piku/internal/procfile"
)

// RegisterAll registers the identity provider, last in priority order.
func RegisterAll(registry *detector.Registry) {
	registry.Register(&provider{detector.BaseProvider{ProviderName: "identity", ProviderLanguage: "identity"}})
}

type provider struct{ detector.BaseProvider }

func (p *provider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	pf := app.Procfile
	if pf == nil {
		return false, nil
	}
	if pf.Has(procfile.KindStatic) {
		return true, nil
	}
	return pf.Has(procfile.KindRelease) && pf.Has(procfile.KindWeb), nil
}

func (p *provider) RequiredBinaries() []string { return nil }

func (p *provider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	return nil, nil
}
