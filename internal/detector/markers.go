package detector

import (
	"os"
	"path/filepath"
)

// HasFile reports whether name exists directly under appPath.
func HasFile(appPath, name string) bool {
	info, err := os.Stat(filepath.Join(appPath, name))
	return err == nil && !info.IsDir()
}

// HasAnyGoFile reports whether appPath contains at least one top-level
// *.go file (spec.md §4.4 step 7: "any *.go").
func HasAnyGoFile(appPath string) bool {
	entries, err := os.ReadDir(appPath)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".go" {
			return true
		}
	}
	return false
}

// NewerThan reports whether the file at manifestPath has a newer mtime than
// envPath (or envPath doesn't exist yet) — the rebuild trigger from
// spec.md §4.4 ("re-running the package manager when the manifest's mtime
// exceeds the env directory's mtime").
func NewerThan(manifestPath, envPath string) bool {
	mInfo, err := os.Stat(manifestPath)
	if err != nil {
		return false
	}
	eInfo, err := os.Stat(envPath)
	if err != nil {
		return true
	}
	return mInfo.ModTime().After(eInfo.ModTime())
}
