package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/vassal"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "list every app, marking deployed (at least one enabled vassal) ones with *",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := os.ReadDir(cfg.AppsDir())
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			marker := " "
			enabled, err := vassal.ListForApp(cfg.UwsgiEnabledDir(), e.Name())
			if err == nil && len(enabled) > 0 {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, e.Name())
		}
		return nil
	},
}
