// Package buildutil provides the shared subprocess-invocation helper used by
// every runtime provider's Build step, mirroring the teacher's os/exec
// invocation style in internal/agent/tools.go.
package buildutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/piku-host/piku/internal/applog"
)

// Run executes name with args in dir, with env appended to the current
// process environment, capturing combined output and logging the command,
// args and dir at debug level. A nonzero exit returns an error wrapping the
// last 2000 bytes of that output.
func Run(ctx context.Context, dir string, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)

	out, err := cmd.CombinedOutput()
	applog.L().Debug().
		Str("cmd", name).
		Strs("args", args).
		Str("dir", dir).
		Msg("build step")

	if err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, truncate(out, 2000))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
