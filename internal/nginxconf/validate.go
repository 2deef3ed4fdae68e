package nginxconf

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	pikuerrors "github.com/piku-host/piku/internal/errors"
)

// WriteAndValidate writes contents to <nginxDir>/<app>.conf, runs
// `nginx -t`, and unlinks the file if nginx emits a diagnostic referencing
// it (spec.md §4.7 step 13, so one bad config can't poison other sites).
func WriteAndValidate(ctx context.Context, nginxDir, app, contents string) (string, error) {
	path := filepath.Join(nginxDir, app+".conf")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		return "", err
	}

	out, err := exec.CommandContext(ctx, "nginx", "-t").CombinedOutput()
	if err != nil && strings.Contains(string(out), app+".conf:") {
		_ = os.Remove(path)
		return "", pikuerrors.ErrNginxValidation
	}
	return path, nil
}
