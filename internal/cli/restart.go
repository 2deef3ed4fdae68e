package cli

import (
	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/deploy"
	"github.com/piku-host/piku/internal/pathutil"
	"github.com/piku-host/piku/internal/termcolor"
)

var restartCmd = &cobra.Command{
	Use:   "restart <app>",
	Short: "stop and respawn every worker without rebuilding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		if err := deploy.New(cfg).Restart(cmd.Context(), app); err != nil {
			return err
		}
		termcolor.Progress("restarted %s", app)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <app>",
	Short: "unlink every enabled vassal, leaving logs and scaling in place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		if err := deploy.New(cfg).StopAll(app); err != nil {
			return err
		}
		termcolor.Progress("stopped %s", app)
		return nil
	},
}
