package detector

import (
	"context"
	"os/exec"

	pikuerrors "github.com/piku-host/piku/internal/errors"
	"github.com/piku-host/piku/internal/termcolor"
)

// Detector walks the registry in priority order and returns the first
// provider whose markers match and whose required binaries are all on
// PATH. A marker match with a missing binary is skipped with a warning,
// not a hard failure (spec.md §4.4).
type Detector struct {
	registry *Registry

	// lookPath is overridable in tests.
	lookPath func(string) (string, error)
}

// New creates a Detector over registry.
func New(registry *Registry) *Detector {
	return &Detector{registry: registry, lookPath: exec.LookPath}
}

// Detect returns the first matching, usable provider.
func (d *Detector) Detect(ctx context.Context, app AppContext) (Provider, error) {
	for _, p := range d.registry.Providers() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ok, err := p.Matches(ctx, app)
		if err != nil {
			termcolor.Warn("%s detection failed: %v", p.Name(), err)
			continue
		}
		if !ok {
			continue
		}

		missing := d.missingBinaries(p)
		if len(missing) > 0 {
			termcolor.Warn("%s matched but required binaries are missing: %v", p.Name(), missing)
			continue
		}

		return p, nil
	}
	return nil, pikuerrors.ErrNoRuntimeDetected
}

func (d *Detector) missingBinaries(p Provider) []string {
	var missing []string
	for _, bin := range p.RequiredBinaries() {
		if _, err := d.lookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	return missing
}
