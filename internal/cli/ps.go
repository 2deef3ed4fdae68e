package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/deploy"
	"github.com/piku-host/piku/internal/pathutil"
	"github.com/piku-host/piku/internal/procfile"
	"github.com/piku-host/piku/internal/termcolor"
)

var psCmd = &cobra.Command{
	Use:   "ps <app>",
	Short: "show the current worker count for each Procfile kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		pf, err := procfile.Parse(filepath.Join(cfg.AppPath(app), "Procfile"))
		if err != nil {
			return err
		}
		d := deploy.New(cfg)
		current, err := d.CurrentScaling(app)
		if err != nil {
			return err
		}
		for _, k := range pf.WorkerKinds() {
			n := current[k]
			if n == 0 {
				n = 1
			}
			fmt.Printf("%s=%d\n", k, n)
		}
		return nil
	},
}

var psScaleCmd = &cobra.Command{
	Use:   "ps:scale <app> <kind=count>...",
	Short: "set an app's worker count for one or more kinds",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}

		d := deploy.New(cfg)
		current, err := d.CurrentScaling(app)
		if err != nil {
			return err
		}

		deltas := make(map[string]int, len(args)-1)
		for _, spec := range args[1:] {
			kind, countStr, ok := strings.Cut(spec, "=")
			if !ok {
				return fmt.Errorf("%q is not kind=count", spec)
			}
			target, err := strconv.Atoi(countStr)
			if err != nil {
				return fmt.Errorf("%q is not kind=count", spec)
			}
			base := current[kind]
			if base == 0 {
				base = 1
			}
			deltas[kind] = target - base
		}

		plan, err := d.Scale(cmd.Context(), app, deltas)
		if err != nil {
			return err
		}
		for kind, n := range plan.Scaling {
			termcolor.Progress("%s: %s=%d", app, kind, n)
		}
		return nil
	},
}
