package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	pikuerrors "github.com/piku-host/piku/internal/errors"
	"github.com/piku-host/piku/internal/pathutil"
	"github.com/piku-host/piku/internal/settings"
)

func envPath(app string) string {
	return filepath.Join(cfg.EnvPath(app), "ENV")
}

func liveEnvPath(app string) string {
	return filepath.Join(cfg.EnvPath(app), "LIVE_ENV")
}

var configCmd = &cobra.Command{
	Use:   "config <app>",
	Short: "show an app's override ENV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		dict, err := settings.Parse(envPath(app), '=')
		if err != nil {
			return err
		}
		for k, v := range dict {
			fmt.Printf("%s=%s\n", k, v)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "config:get <app> <key>",
	Short: "print one ENV value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		dict, err := settings.Parse(envPath(app), '=')
		if err != nil {
			return err
		}
		v, ok := dict[args[1]]
		if !ok {
			return fmt.Errorf("key %q not set for %s", args[1], app)
		}
		fmt.Println(v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "config:set <app> <key=value>...",
	Short: "set one or more ENV overrides",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		dict, err := settings.Parse(envPath(app), '=')
		if err != nil {
			return err
		}
		for _, kv := range args[1:] {
			parsed := settings.ToMap([]string{kv})
			for k, v := range parsed {
				dict[k] = v
			}
		}
		return settings.Write(envPath(app), '=', dict, nil)
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "config:unset <app> <key>",
	Short: "remove one ENV override",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		dict, err := settings.Parse(envPath(app), '=')
		if err != nil {
			return err
		}
		delete(dict, args[1])
		return settings.Write(envPath(app), '=', dict, nil)
	},
}

var configLiveCmd = &cobra.Command{
	Use:   "config:live <app>",
	Short: "show the ENV snapshot taken at the last successful deploy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		dict, err := settings.Parse(liveEnvPath(app), '=')
		if err != nil {
			return err
		}
		if len(dict) == 0 {
			return pikuerrors.ErrAppNotFound
		}
		for k, v := range dict {
			fmt.Printf("%s=%s\n", k, v)
		}
		return nil
	},
}
