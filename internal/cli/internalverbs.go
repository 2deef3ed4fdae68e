package cli

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/deploy"
	"github.com/piku-host/piku/internal/githook"
	"github.com/piku-host/piku/internal/pathutil"
)

// gitHookCmd implements `git-hook <app>`, invoked by a bare repo's
// post-receive hook with ref updates on stdin (spec.md §4.8).
var gitHookCmd = &cobra.Command{
	Use:    "git-hook <app>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := pathutil.Sanitize(args[0])
		if app == "" {
			return nil
		}
		d := deploy.New(cfg)
		return githook.HandleGitHook(cmd.Context(), cfg, app, os.Stdin, d.Deploy)
	},
}

// gitReceivePackCmd is the SSH-exposed entry point for `git push`: it
// bootstraps the bare repo and post-receive hook, then hands off to
// git-shell (spec.md §4.8, "internal verbs").
var gitReceivePackCmd = &cobra.Command{
	Use:    "git-receive-pack <app>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := pathutil.Sanitize(args[0])
		if app == "" {
			return nil
		}
		bin, err := os.Executable()
		if err != nil {
			return err
		}
		if err := githook.EnsureBareRepo(cmd.Context(), cfg, app, bin); err != nil {
			return err
		}
		return execGitShell(cmd, "git-receive-pack '"+cfg.RepoPath(app)+"'")
	},
}

// gitUploadPackCmd forwards clone/pull requests to git-shell without any
// bootstrap step (spec.md §4.8).
var gitUploadPackCmd = &cobra.Command{
	Use:    "git-upload-pack <app>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := pathutil.Sanitize(args[0])
		if app == "" {
			return nil
		}
		return execGitShell(cmd, "git-upload-pack '"+cfg.RepoPath(app)+"'")
	},
}

// scpCmd runs the original SSH command (an scp invocation) through `sh -c`,
// used by operators to move files in/out of data/<app>.
var scpCmd = &cobra.Command{
	Use:    "scp",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		original := os.Getenv("SSH_ORIGINAL_COMMAND")
		if original == "" {
			return nil
		}
		return forward(cmd, "sh", "-c", original)
	},
}

func execGitShell(cmd *cobra.Command, command string) error {
	return forward(cmd, "git-shell", "-c", command)
}

func forward(cmd *cobra.Command, name string, args ...string) error {
	child := exec.CommandContext(cmd.Context(), name, args...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	return child.Run()
}
