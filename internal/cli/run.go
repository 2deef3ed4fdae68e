package cli

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/pathutil"
	"github.com/piku-host/piku/internal/settings"
)

// runCmd execs an ad-hoc command in the app's working tree with its last
// deployed environment, forwarding stdin/stdout/stderr to the caller's
// terminal (spec.md §4.10 "run").
var runCmd = &cobra.Command{
	Use:                "run <app> -- <command> [args...]",
	Short:              "run a one-off command against an app's LIVE_ENV",
	Args:               cobra.MinimumNArgs(2),
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		rest := args[1:]
		if rest[0] == "--" {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return nil
		}

		env, err := settings.Parse(filepath.Join(cfg.EnvPath(app), "LIVE_ENV"), '=')
		if err != nil {
			return err
		}

		child := exec.CommandContext(cmd.Context(), rest[0], rest[1:]...)
		child.Dir = cfg.AppPath(app)
		child.Env = append(os.Environ(), settings.ToEnvSlice(env)...)
		child.Stdin = os.Stdin
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		return child.Run()
	},
}
