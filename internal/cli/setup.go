package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/sshauth"
	"github.com/piku-host/piku/internal/termcolor"
)

const emperorTemplate = `[uwsgi]
emperor = %s
emperor-tyrant = false
threads = %d
master = true
logto2 = %s
`

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "create the root tree and the Emperor supervisor config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.EnsureTree(); err != nil {
			return err
		}

		bin, err := os.Executable()
		if err != nil {
			return err
		}
		if err := os.Chmod(bin, 0755); err != nil {
			return err
		}

		threads := cfg.EmperorThreadsPerCPU * runtime.NumCPU()
		ini := fmt.Sprintf(emperorTemplate, cfg.UwsgiEnabledDir(), threads, filepath.Join(cfg.LogsDir(), "uwsgi.log"))
		iniPath := filepath.Join(cfg.Root, "uwsgi.ini")
		if err := os.WriteFile(iniPath, []byte(ini), 0644); err != nil {
			return err
		}

		termcolor.Progress("piku root tree ready at %s", cfg.Root)
		return nil
	},
}

var sshRemoveFingerprint string

var setupSSHCmd = &cobra.Command{
	Use:   "setup:ssh <pubkey-file> [name]",
	Short: "authorize a public key for restricted piku-only SSH access",
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sshDir := filepath.Join(mustHomeDir(), ".ssh")

		if sshRemoveFingerprint != "" {
			if err := sshauth.Remove(sshDir, sshRemoveFingerprint); err != nil {
				return err
			}
			termcolor.Progress("removed authorization for %s", sshRemoveFingerprint)
			return nil
		}

		if len(args) < 1 {
			return fmt.Errorf("setup:ssh requires a public key file unless --remove is given")
		}
		pubKeyPath := args[0]
		name := "piku"
		if len(args) == 2 {
			name = args[1]
		}

		fingerprint, err := sshauth.Fingerprint(cmd.Context(), pubKeyPath)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(pubKeyPath)
		if err != nil {
			return err
		}
		bin, err := os.Executable()
		if err != nil {
			return err
		}

		if err := sshauth.Authorize(sshDir, bin, fingerprint, name, string(data)); err != nil {
			return err
		}
		termcolor.Progress("authorized %s (%s)", name, fingerprint)
		return nil
	},
}

func init() {
	setupSSHCmd.Flags().StringVar(&sshRemoveFingerprint, "remove", "", "remove the authorization matching this fingerprint instead of adding one")
}

func mustHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/root"
	}
	return home
}
