package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piku-host/piku/internal/logtail"
	"github.com/piku-host/piku/internal/pathutil"
)

var logsCmd = &cobra.Command{
	Use:   "logs <app> [proc]",
	Short: "replay and follow an app's interleaved worker logs",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pathutil.RequireApp(cfg, args[0])
		if err != nil {
			return err
		}
		var procFilter string
		if len(args) == 2 {
			procFilter = args[1]
		}

		paths, err := logPaths(cfg.LogPath(app), procFilter)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return nil
		}

		replayed, err := logtail.Replay(paths, logtail.ReplayLines)
		if err != nil {
			return err
		}
		for _, l := range replayed {
			fmt.Printf("%s | %s\n", l.Prefix, l.Text)
		}

		tailer, err := logtail.New(paths)
		if err != nil {
			return err
		}
		out := make(chan logtail.Line)
		done := make(chan error, 1)
		go func() { done <- tailer.Run(cmd.Context(), out) }()

		for {
			select {
			case l := <-out:
				fmt.Printf("%s | %s\n", l.Prefix, l.Text)
			case err := <-done:
				return err
			}
		}
	},
}

func logPaths(logDir, procFilter string) ([]string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		if procFilter != "" && !strings.HasPrefix(e.Name(), procFilter+".") {
			continue
		}
		paths = append(paths, filepath.Join(logDir, e.Name()))
	}
	return paths, nil
}
