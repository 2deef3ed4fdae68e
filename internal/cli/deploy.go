package cli

import (
	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/deploy"
	"github.com/piku-host/piku/internal/pathutil"
	"github.com/piku-host/piku/internal/termcolor"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <app>",
	Short: "rebuild and reconcile an already-pushed app without a new git push",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		if err := deploy.New(cfg).Deploy(cmd.Context(), app, ""); err != nil {
			return err
		}
		termcolor.Progress("deployed %s", app)
		return nil
	},
}
