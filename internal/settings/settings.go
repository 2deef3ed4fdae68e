// Package settings parses and writes the line-oriented key=value (or
// key:value) files used throughout piku for ENV, SCALING and templated
// nginx/uwsgi fragments (spec.md §4.2, §9 "Shell-style variable expansion").
package settings

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/piku-host/piku/internal/termcolor"
)

// varPattern matches a $NAME or ${NAME} reference; group 1 captures a
// preceding backslash, so escaped references are matched too.
var varPattern = regexp.MustCompile(`(\\)?\$(\w+|\{[^}]*\})`)

// Parse reads path as sep-separated key/value lines, expanding $VAR/${VAR}
// references in the value against the dict accumulated so far. Blank lines
// and lines starting with '#' are skipped. A malformed line (no separator)
// logs an error and yields an empty map, leaving any prior state untouched
// by the caller.
func Parse(path string, sep byte) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		idx := strings.IndexByte(line, sep)
		if idx < 0 {
			termcolor.Error("malformed line in %s: %q", path, line)
			return map[string]string{}, nil
		}

		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		result[key] = ExpandVars(val, result)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Write serializes data as "k<sep>v\n" lines, in the given key order if
// order is non-nil, otherwise in map iteration order. No quoting or
// escaping is performed; callers must pre-sanitize keys and values.
func Write(path string, sep byte, data map[string]string, order []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	seen := make(map[string]struct{}, len(order))
	for _, k := range order {
		v, ok := data[k]
		if !ok {
			continue
		}
		seen[k] = struct{}{}
		if _, err := w.WriteString(k + string(sep) + v + "\n"); err != nil {
			return err
		}
	}
	for k, v := range data {
		if _, ok := seen[k]; ok {
			continue
		}
		if _, err := w.WriteString(k + string(sep) + v + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// ExpandVars substitutes unescaped $NAME/${NAME} references in template
// against dict, leaving escaped \$NAME references as a literal $NAME. It is
// a pure function, reused for ENV-style file values (including
// UWSGI_INCLUDE_FILE) and NGINX_INCLUDE_FILE contents; the nginx server
// block itself is rendered with text/template (spec.md §9).
func ExpandVars(template string, dict map[string]string) string {
	return varPattern.ReplaceAllStringFunc(template, func(m string) string {
		sub := varPattern.FindStringSubmatch(m)
		escaped, name := sub[1], sub[2]
		name = strings.Trim(name, "{}")
		if escaped == `\` {
			return "$" + name
		}
		return dict[name]
	})
}

// Merge overlays override on top of base, returning a new map. Keys present
// only in base are kept, matching the ENV precedence rule in spec.md §3:
// shipped ENV is read first, override ENV second.
func Merge(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// ToMap is ToEnvSlice's inverse: it splits each "K=V" string (as returned by
// a Provider.Build) into a dict, skipping any malformed entry lacking '='.
func ToMap(envSlice []string) map[string]string {
	out := make(map[string]string, len(envSlice))
	for _, kv := range envSlice {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		out[kv[:idx]] = kv[idx+1:]
	}
	return out
}

// ToEnvSlice converts a dict into "K=V" strings suitable for exec.Cmd.Env.
func ToEnvSlice(dict map[string]string) []string {
	out := make([]string, 0, len(dict))
	for k, v := range dict {
		out = append(out, k+"="+v)
	}
	return out
}
