// Package pathutil validates and normalizes app names and derives the paths
// that depend on them (spec.md §4.1).
package pathutil

import (
	"os"
	"strings"

	pikuerrors "github.com/piku-host/piku/internal/errors"
	"github.com/piku-host/piku/internal/pikuconfig"
)

// Sanitize keeps only [A-Za-z0-9._-], strips a leading '/', and trims
// surrounding whitespace. It is idempotent: Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RequireApp sanitizes name and verifies apps/<name> exists. It returns
// ErrAppNotFound otherwise.
func RequireApp(cfg pikuconfig.Config, name string) (string, error) {
	app := Sanitize(name)
	if app == "" {
		return "", pikuerrors.ErrInvalidName
	}
	info, err := os.Stat(cfg.AppPath(app))
	if err != nil || !info.IsDir() {
		return "", pikuerrors.ErrAppNotFound
	}
	return app, nil
}
