// Package vassal generates the uWSGI Emperor INI file for one worker
// (spec.md §4.6). Writes go through a temp-file-then-rename so the Emperor
// never observes a partially written vassal (spec.md §9 "uwsgi-enabled race
// condition").
package vassal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	pikuerrors "github.com/piku-host/piku/internal/errors"
	"github.com/piku-host/piku/internal/procfile"
	"github.com/piku-host/piku/internal/settings"
)

// reservedEnvPrefix marks internal keys never exposed to the uwsgi env=
// directive list (spec.md §4.6).
const reservedEnvPrefix = "PIKU_INTERNAL_"

// Spec describes one worker to emit a vassal for.
type Spec struct {
	App     string
	Kind    string // procfile kind, or "cron<n>" for a cron line
	Ordinal int
	Cmd     string
	AppPath string
	LogDir  string // <ROOT>/logs/<app>
	UID     string
	GID     string

	MaxRequests int
	Processes   int
	Env         map[string]string // merged ENV, app-specific keys (PORT, NGINX_*, UWSGI_*, ...)
}

// Render builds the INI text for spec. Kind "static" has no vassal
// representation and returns ("", false, nil).
func Render(spec Spec) (string, bool, error) {
	if spec.Kind == procfile.KindStatic {
		return "", false, nil
	}

	var b strings.Builder
	b.WriteString("[uwsgi]\n")

	writeUniversal(&b, spec)

	switch {
	case spec.Kind == procfile.KindWSGI:
		writeWSGI(&b, spec)
	case spec.Kind == procfile.KindJWSGI:
		writeJWSGI(&b, spec)
	case spec.Kind == procfile.KindRWSGI:
		writeRWSGI(&b, spec)
	case spec.Kind == procfile.KindPHP:
		writePHP(&b, spec)
	case strings.HasPrefix(spec.Kind, procfile.CronPrefix):
		if err := writeCron(&b, spec); err != nil {
			return "", false, err
		}
	case spec.Kind != "":
		// web, worker, and any custom kind are attached daemons.
		b.WriteString("attach-daemon = " + spec.Cmd + "\n")
	default:
		return "", false, pikuerrors.ErrUnsupportedKind
	}

	writeIdle(&b, spec.Env)
	if err := writeIncludeFile(&b, spec); err != nil {
		return "", false, err
	}

	return b.String(), true, nil
}

func writeUniversal(b *strings.Builder, spec Spec) {
	fmt.Fprintf(b, "chdir = %s\n", spec.AppPath)
	if spec.UID != "" {
		fmt.Fprintf(b, "uid = %s\n", spec.UID)
	}
	if spec.GID != "" {
		fmt.Fprintf(b, "gid = %s\n", spec.GID)
	}
	b.WriteString("master = true\n")
	fmt.Fprintf(b, "project = %s\n", spec.App)
	if spec.MaxRequests > 0 {
		fmt.Fprintf(b, "max-requests = %d\n", spec.MaxRequests)
	}
	b.WriteString("listen = 128\n")
	if spec.Processes > 0 {
		fmt.Fprintf(b, "processes = %d\n", spec.Processes)
	} else {
		b.WriteString("processes = 1\n")
	}
	fmt.Fprintf(b, "procname-prefix = %s:%s:\n", spec.App, spec.Kind)
	b.WriteString("enable-threads = true\n")
	b.WriteString("log-x-forwarded-for = true\n")
	b.WriteString("log-maxsize = 1048576\n")
	b.WriteString("logfile-chown = true\n")
	b.WriteString("logfile-chmod = 640\n")
	fmt.Fprintf(b, "logto2 = %s\n", filepath.Join(spec.LogDir, fmt.Sprintf("%s.%d.log", spec.Kind, spec.Ordinal)))
	b.WriteString("log-backupname = true\n")

	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		if strings.HasPrefix(k, reservedEnvPrefix) || k == "NGINX_ACL" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "env = %s=%s\n", k, spec.Env[k])
	}
}

func writeWSGI(b *strings.Builder, spec Spec) {
	fmt.Fprintf(b, "module = %s\n", spec.Cmd)
	b.WriteString("threads = true\n")
	if spec.Env["PYTHON_VERSION"] == "2" {
		b.WriteString("plugin = python\n")
	} else {
		b.WriteString("plugin = python3\n")
	}
	if isTruthy(spec.Env["UWSGI_GEVENT"]) {
		b.WriteString("plugin = gevent_python3\n")
	}
	if isTruthy(spec.Env["UWSGI_ASYNCIO"]) {
		b.WriteString("plugin = asyncio_python3\n")
	}
	writeSocket(b, spec)
}

func writeJWSGI(b *strings.Builder, spec Spec) {
	fmt.Fprintf(b, "module = %s\n", spec.Cmd)
	b.WriteString("plugin = jvm\n")
	b.WriteString("plugin = jwsgi\n")
	writeSocket(b, spec)
}

func writeRWSGI(b *strings.Builder, spec Spec) {
	fmt.Fprintf(b, "rbrequire = %s\n", spec.Cmd)
	b.WriteString("plugin = rack\n")
	b.WriteString("post-buffering = true\n")
	writeSocket(b, spec)
}

func writePHP(b *strings.Builder, spec Spec) {
	b.WriteString("plugin = http,0:php\n")
	port := spec.Env["PORT"]
	fmt.Fprintf(b, "http = :%s\n", port)
	fmt.Fprintf(b, "php-docroot = %s\n", filepath.Join(spec.AppPath, spec.Cmd))
	b.WriteString("static-skip-ext = .php|.inc\n")
	b.WriteString("php-index = index.php\n")
}

func writeSocket(b *strings.Builder, spec Spec) {
	if spec.Env["NGINX_SERVER_NAME"] != "" {
		sock := filepath.Join(spec.Env["NGINX_ROOT"], spec.App+".sock")
		fmt.Fprintf(b, "socket = %s\n", sock)
		return
	}
	bind := spec.Env["BIND_ADDRESS"]
	if bind == "" {
		bind = "127.0.0.1"
	}
	port := spec.Env["PORT"]
	fmt.Fprintf(b, "http-socket = %s:%s\n", bind, port)
}

func writeCron(b *strings.Builder, spec Spec) error {
	rewritten, err := procfile.RewriteCronSchedule(spec.Cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "cron = %s\n", rewritten)
	return nil
}

func writeIdle(b *strings.Builder, env map[string]string) {
	idle := env["UWSGI_IDLE"]
	if idle == "" {
		return
	}
	fmt.Fprintf(b, "idle = %s\n", idle)
	b.WriteString("cheap = true\n")
	b.WriteString("die-on-idle = true\n")
}

func writeIncludeFile(b *strings.Builder, spec Spec) error {
	path := spec.Env["UWSGI_INCLUDE_FILE"]
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(spec.AppPath, path)
	}
	dict, err := settings.Parse(path, '=')
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s = %s\n", k, dict[k])
	}
	return nil
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "True", "TRUE", "yes", "on":
		return true
	default:
		return false
	}
}

// Write atomically writes the rendered INI to <dir>/<app>_<kind>.<ordinal>.ini
// via a temp file + rename, so a concurrently running Emperor scan never
// observes a half-written vassal.
func Write(dir string, spec Spec) (string, error) {
	ini, ok, err := Render(spec)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	name := fmt.Sprintf("%s_%s.%d.ini", spec.App, spec.Kind, spec.Ordinal)
	dest := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".tmp-"+name+"-")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(ini); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return dest, nil
}

// FileName returns the vassal file name for (app, kind, ordinal) without
// writing anything, used by Unlink to remove destroyed workers.
func FileName(app, kind string, ordinal int) string {
	return fmt.Sprintf("%s_%s.%d.ini", app, kind, ordinal)
}

// Unlink removes an enabled vassal file for a destroyed worker. The
// corresponding log file is intentionally left in place (spec.md §4.5).
func Unlink(dir, app, kind string, ordinal int) error {
	err := os.Remove(filepath.Join(dir, FileName(app, kind, ordinal)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ParseFileName recovers (kind, ordinal) from a vassal file name belonging
// to app, e.g. "myapp_web.2.ini" -> ("web", 2, true).
func ParseFileName(app, name string) (kind string, ordinal int, ok bool) {
	prefix := app + "_"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".ini") {
		return "", 0, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".ini")
	dot := strings.LastIndexByte(rest, '.')
	if dot < 0 {
		return "", 0, false
	}
	kind = rest[:dot]
	n, err := strconv.Atoi(rest[dot+1:])
	if err != nil {
		return "", 0, false
	}
	return kind, n, true
}

// ListForApp returns every vassal currently enabled for app.
func ListForApp(dir, app string) (map[string]map[int]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]map[int]bool{}, nil
		}
		return nil, err
	}
	result := make(map[string]map[int]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, ordinal, ok := ParseFileName(app, e.Name())
		if !ok {
			continue
		}
		if result[kind] == nil {
			result[kind] = make(map[int]bool)
		}
		result[kind][ordinal] = true
	}
	return result, nil
}
