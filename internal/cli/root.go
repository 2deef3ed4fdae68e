// Package cli assembles the cobra command tree for every verb in
// spec.md §4.10: the user-facing surface (apps, config*, deploy, destroy,
// logs, ps*, run, restart, stop, setup*, update) and the SSH-only internal
// surface (git-hook, git-receive-pack, git-upload-pack, scp). Unrecognized
// verbs fall through to a `piku-plugin-<verb>` binary on PATH.
package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/applog"
	"github.com/piku-host/piku/internal/pikuconfig"
	"github.com/piku-host/piku/internal/termcolor"
)

var (
	verbose bool
	quiet   bool
	cfg     pikuconfig.Config
)

var rootCmd = &cobra.Command{
	Use:           "piku",
	Short:         "A minimalist PaaS for your own servers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The authorized_keys forced command sets FINGERPRINT; over SSH only
		// the internal verbs are honored.
		if os.Getenv("FINGERPRINT") != "" {
			switch cmd.Name() {
			case "git-hook", "git-receive-pack", "git-upload-pack", "scp":
			default:
				return fmt.Errorf("%s is not available over SSH", cmd.Name())
			}
		}
		var err error
		cfg, err = pikuconfig.FromEnv()
		if err != nil {
			return err
		}
		termcolor.SetQuiet(quiet)
		applog.Init(verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	rootCmd.AddCommand(
		appsCmd,
		configCmd, configGetCmd, configSetCmd, configUnsetCmd, configLiveCmd,
		deployCmd, destroyCmd,
		logsCmd,
		psCmd, psScaleCmd,
		runCmd, restartCmd, stopCmd,
		setupCmd, setupSSHCmd,
		updateCmd,
		gitHookCmd, gitReceivePackCmd, gitUploadPackCmd, scpCmd,
	)
}

// Execute runs the root command, dispatching to a `piku-plugin-<verb>`
// executable found on PATH when the verb is unrecognized.
func Execute() int {
	if len(os.Args) > 1 {
		if dispatched, code := tryPlugin(os.Args[1], os.Args[2:]); dispatched {
			return code
		}
	}

	if err := rootCmd.Execute(); err != nil {
		termcolor.Error("%v", err)
		return 1
	}
	return 0
}

// tryPlugin execs piku-plugin-<verb> when verb isn't one of rootCmd's
// registered commands (spec.md §3, REDESIGN FLAGS "Plugin system": dispatch
// by exec rather than dynamic code loading).
func tryPlugin(verb string, args []string) (dispatched bool, exitCode int) {
	if verb == "" || verb[0] == '-' {
		return false, 0
	}
	for _, c := range rootCmd.Commands() {
		if c.Name() == verb {
			return false, 0
		}
	}
	if verb == "help" || verb == "completion" {
		return false, 0
	}

	bin, err := exec.LookPath("piku-plugin-" + verb)
	if err != nil {
		return false, 0
	}

	cmd := exec.Command(bin, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return true, exitErr.ExitCode()
		}
		fmt.Fprintln(os.Stderr, err)
		return true, 1
	}
	return true, 0
}
