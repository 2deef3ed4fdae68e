// Package detector walks an ordered registry of runtime providers and
// returns the first whose marker files match and whose required toolchain
// binaries are present on PATH (spec.md §4.4; DESIGN NOTES §9 "Dynamic
// dispatch over runtime detectors"). Shape kept from the teacher's
// internal/detector package (Registry + Provider interface + ordered
// Detect loop); confidence scoring replaced with piku's exact marker-file
// priority list.
package detector

import (
	"context"

	"github.com/piku-host/piku/internal/procfile"
)

// AppContext is everything a Provider needs to decide a match and perform a
// build; it replaces ad hoc os.Getenv/file-path calls inside providers.
type AppContext struct {
	AppPath  string              // apps/<app>
	EnvPath  string              // envs/<app>
	Procfile *procfile.Procfile  // parsed Procfile, for kind-aware providers (php, identity)
	Env      map[string]string   // merged ENV (shipped + override), for PYTHON_VERSION etc.
}

// Provider is one runtime/build strategy, e.g. "python-requirements" or
// "go-modules".
type Provider interface {
	// Name identifies the provider, e.g. "python-poetry".
	Name() string

	// Language is the broad runtime family used by the vassal generator
	// (e.g. "python", "node", "go", "ruby", "java", "php", "rust",
	// "clojure", "identity").
	Language() string

	// Matches inspects marker files only (no PATH check).
	Matches(ctx context.Context, app AppContext) (bool, error)

	// RequiredBinaries lists the external tools that must be on PATH for
	// this provider to be usable.
	RequiredBinaries() []string

	// Build populates/refreshes app.EnvPath and returns additional
	// environment entries ("KEY=VALUE") to merge into the worker
	// environment (PATH, VIRTUAL_ENV, NODE_PATH, PYTHONUNBUFFERED, ...).
	Build(ctx context.Context, app AppContext) ([]string, error)
}

// BaseProvider supplies the identity methods so concrete providers only
// implement Matches/RequiredBinaries/Build (mirrors the teacher's
// providers.BaseProvider embedding).
type BaseProvider struct {
	ProviderName     string
	ProviderLanguage string
}

func (b BaseProvider) Name() string     { return b.ProviderName }
func (b BaseProvider) Language() string { return b.ProviderLanguage }
