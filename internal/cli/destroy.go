package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/pathutil"
	"github.com/piku-host/piku/internal/termcolor"
	"github.com/piku-host/piku/internal/vassal"
)

// destroyCmd removes every app directory and generated artifact except
// data/<app> and cache/<app>, which are private and never deleted
// (spec.md §4.10 "destroy", §8 property 7).
var destroyCmd = &cobra.Command{
	Use:   "destroy <app>",
	Short: "tear down an app, keeping its data and cache directories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}

		enabled, err := vassal.ListForApp(cfg.UwsgiEnabledDir(), app)
		if err == nil {
			for kind, ords := range enabled {
				for ord := range ords {
					_ = vassal.Unlink(cfg.UwsgiEnabledDir(), app, kind, ord)
				}
			}
		}
		available, err := vassal.ListForApp(cfg.UwsgiAvailableDir(), app)
		if err == nil {
			for kind, ords := range available {
				for ord := range ords {
					_ = vassal.Unlink(cfg.UwsgiAvailableDir(), app, kind, ord)
				}
			}
		}

		for _, ext := range []string{".conf", ".sock", ".key", ".crt"} {
			_ = os.Remove(filepath.Join(cfg.NginxDir(), app+ext))
		}
		_ = os.Remove(filepath.Join(cfg.AcmeDir(), app))

		for _, dir := range []string{
			cfg.AppPath(app),
			cfg.RepoPath(app),
			cfg.EnvPath(app),
			cfg.LogPath(app),
		} {
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
		}

		termcolor.Progress("destroyed %s", app)
		fmt.Printf("%s and %s were preserved; remove them manually if you no longer need them\n",
			cfg.DataPath(app), cfg.CachePath(app))
		return nil
	},
}
