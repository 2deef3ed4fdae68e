// Package githook implements the SSH-gated git receive path (spec.md §4.8):
// bare repo bootstrap, the post-receive hook script, and do_deploy's git
// plumbing sequence.
package githook

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/piku-host/piku/internal/buildutil"
	pikuerrors "github.com/piku-host/piku/internal/errors"
	"github.com/piku-host/piku/internal/pikuconfig"
)

const postReceiveTemplate = `#!/bin/sh
export PIKU_ROOT=%s
exec %s git-hook %s
`

// EnsureBareRepo initializes repos/<app> as a bare git repo if it doesn't
// already exist, and writes its post-receive hook.
func EnsureBareRepo(ctx context.Context, cfg pikuconfig.Config, app, pikuBinary string) error {
	repoPath := cfg.RepoPath(app)
	if _, err := os.Stat(filepath.Join(repoPath, "HEAD")); err != nil {
		if err := os.MkdirAll(repoPath, 0755); err != nil {
			return err
		}
		if err := buildutil.Run(ctx, repoPath, nil, "git", "init", "--bare"); err != nil {
			return err
		}
	}
	return writePostReceiveHook(cfg, repoPath, app, pikuBinary)
}

func writePostReceiveHook(cfg pikuconfig.Config, repoPath, app, pikuBinary string) error {
	hookPath := filepath.Join(repoPath, "hooks", "post-receive")
	script := fmt.Sprintf(postReceiveTemplate, cfg.Root, pikuBinary, app)
	if err := os.WriteFile(hookPath, []byte(script), 0755); err != nil {
		return err
	}
	return os.Chmod(hookPath, 0755)
}

// RefUpdate is one "oldrev newrev refname" line read from post-receive's
// stdin.
type RefUpdate struct {
	OldRev  string
	NewRev  string
	RefName string
}

// ReadRefUpdates parses post-receive's stdin protocol.
func ReadRefUpdates(r io.Reader) ([]RefUpdate, error) {
	var updates []RefUpdate
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		updates = append(updates, RefUpdate{OldRev: fields[0], NewRev: fields[1], RefName: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return updates, nil
}

// DeployFunc performs the app-level deploy, supplied by internal/deploy to
// avoid an import cycle (githook has no business knowing about detection,
// reconciliation, or vassal generation).
type DeployFunc func(ctx context.Context, app, newRev string) error

// HandleGitHook implements `git-hook <app>`: for each ref update read from
// stdin, clone the working tree on first push and invoke deploy.
func HandleGitHook(ctx context.Context, cfg pikuconfig.Config, app string, stdin io.Reader, deploy DeployFunc) error {
	updates, err := ReadRefUpdates(stdin)
	if err != nil {
		return err
	}

	for _, u := range updates {
		if err := ensureWorkingTree(ctx, cfg, app); err != nil {
			return err
		}
		if err := deploy(ctx, app, u.NewRev); err != nil {
			return err
		}
	}
	return nil
}

func ensureWorkingTree(ctx context.Context, cfg pikuconfig.Config, app string) error {
	appPath := cfg.AppPath(app)
	if _, err := os.Stat(appPath); err == nil {
		return nil
	}
	if err := buildutil.Run(ctx, cfg.AppsDir(), nil, "git", "clone", "--quiet", cfg.RepoPath(app), appPath); err != nil {
		return err
	}
	return os.MkdirAll(cfg.DataPath(app), 0755)
}

// FetchResetSubmodules runs the git plumbing sequence do_deploy performs
// before build/release/reconcile: fetch, hard reset to newRev, then
// submodule init+update (spec.md §4.8, §5 ordering).
func FetchResetSubmodules(ctx context.Context, appPath, newRev string) error {
	if newRev == "" {
		return nil
	}
	steps := [][]string{
		{"git", "fetch", "--quiet"},
		{"git", "reset", "--hard", newRev},
		{"git", "submodule", "init"},
		{"git", "submodule", "update"},
	}
	for _, step := range steps {
		if err := buildutil.Run(ctx, appPath, nil, step[0], step[1:]...); err != nil {
			return err
		}
	}
	return nil
}

// RequireBareRepo verifies repoPath looks like a bare git repository: it
// returns ErrNotABareRepo when repoPath/HEAD is missing or is a directory.
func RequireBareRepo(repoPath string) error {
	info, err := os.Stat(filepath.Join(repoPath, "HEAD"))
	if err != nil || info.IsDir() {
		return pikuerrors.ErrNotABareRepo
	}
	return nil
}
