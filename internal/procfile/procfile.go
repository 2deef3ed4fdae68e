// Package procfile parses the Procfile worker-kind → command map and
// validates cron lines (spec.md §4.3).
package procfile

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	pikuerrors "github.com/piku-host/piku/internal/errors"
	"github.com/piku-host/piku/internal/termcolor"
)

// Kinds with fixed semantics (spec.md §3 table).
const (
	KindWSGI      = "wsgi"
	KindJWSGI     = "jwsgi"
	KindRWSGI     = "rwsgi"
	KindWeb       = "web"
	KindStatic    = "static"
	KindPHP       = "php"
	KindWorker    = "worker"
	KindPreflight = "preflight"
	KindRelease   = "release"
	CronPrefix    = "cron"
)

// cronLine matches a classic 5-field cron expression followed by a command.
var cronLine = regexp.MustCompile(`^((?:\*/)?\d+|\*)\s+((?:\*/)?\d+|\*)\s+((?:\*/)?\d+|\*)\s+((?:\*/)?\d+|\*)\s+((?:\*/)?\d+|\*)\s+(.+)$`)

// fieldCeilings are the per-field maxima: minute, hour, day-of-month, month,
// day-of-week.
var fieldCeilings = [5]int{59, 24, 31, 12, 7}

// Procfile is the parsed kind -> command map plus the original declaration
// order (for deterministic reconciliation/vassal generation).
type Procfile struct {
	Commands map[string]string
	Order    []string
}

// Has reports whether kind is present.
func (p *Procfile) Has(kind string) bool {
	_, ok := p.Commands[kind]
	return ok
}

// HasAnyWSGI reports whether any of wsgi/jwsgi/rwsgi is present.
func (p *Procfile) HasAnyWSGI() bool {
	return p.Has(KindWSGI) || p.Has(KindJWSGI) || p.Has(KindRWSGI)
}

// WorkerKinds returns the kinds that become supervised workers: everything
// except preflight/release, and minus "web" when a WSGI-style kind is also
// present (spec.md §3 invariant, §9 "WSGI-vs-web precedence" fixed to a
// membership test rather than the source's always-true truthiness bug).
func (p *Procfile) WorkerKinds() []string {
	dropWeb := p.HasAnyWSGI()
	var out []string
	for _, k := range p.Order {
		if k == KindPreflight || k == KindRelease {
			continue
		}
		if k == KindWeb && dropWeb {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Parse reads and validates a Procfile at path. Comments ('#') and blank
// lines are skipped; each remaining line is split on the first ':'.
// Duplicate kinds and malformed cron lines are rejected with a warning and
// the offending line is skipped (spec.md §9 Open Question 1: reject rather
// than silently last-writer-wins).
func Parse(path string) (*Procfile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pikuerrors.ErrNoProcfile
		}
		return nil, err
	}
	defer f.Close()

	pf := &Procfile{Commands: make(map[string]string)}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			termcolor.Warn("skipping malformed Procfile line: %q", line)
			continue
		}
		kind := strings.TrimSpace(line[:idx])
		cmd := strings.TrimSpace(line[idx+1:])
		if kind == "" || cmd == "" {
			termcolor.Warn("skipping malformed Procfile line: %q", line)
			continue
		}

		if strings.HasPrefix(kind, CronPrefix) {
			if err := ValidateCron(cmd); err != nil {
				termcolor.Warn("skipping invalid cron line %q: %v", line, err)
				continue
			}
		}

		if _, dup := pf.Commands[kind]; dup {
			termcolor.Warn("duplicate worker kind %q in Procfile, keeping first definition", kind)
			continue
		}

		pf.Commands[kind] = cmd
		pf.Order = append(pf.Order, kind)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if pf.Has(KindWeb) && pf.HasAnyWSGI() {
		termcolor.Warn("dropping 'web' worker: a wsgi-style kind is present")
	}

	return pf, nil
}

// ValidateCron checks that cmd is "m h dom mon dow command" with each
// schedule field within its ceiling (spec.md §4.3: {59,24,31,12,7}).
// It does not touch the command tail, so a literal '*' in the command is
// never misread as a schedule field (spec.md §9, cron translation bug fix).
func ValidateCron(cmd string) error {
	m := cronLine.FindStringSubmatch(cmd)
	if m == nil {
		return pikuerrors.ErrMalformedCron
	}
	for i := 0; i < 5; i++ {
		field := m[i+1]
		numeric := strings.TrimPrefix(field, "*/")
		if numeric == "*" {
			continue
		}
		n, err := strconv.Atoi(numeric)
		if err != nil {
			return pikuerrors.ErrMalformedCron
		}
		if n > fieldCeilings[i] {
			return pikuerrors.ErrCronFieldRange
		}
	}
	return nil
}

// RewriteCronSchedule rewrites only the five schedule fields of a validated
// cron line into uWSGI's `-N`/`-1` syntax, leaving the command tail
// untouched (spec.md §4.6, §9).
func RewriteCronSchedule(cmd string) (string, error) {
	m := cronLine.FindStringSubmatch(cmd)
	if m == nil {
		return "", pikuerrors.ErrMalformedCron
	}
	fields := make([]string, 5)
	for i := 0; i < 5; i++ {
		fields[i] = rewriteField(m[i+1])
	}
	return strings.Join(fields, " ") + " " + m[6], nil
}

func rewriteField(field string) string {
	if field == "*" {
		return "-1"
	}
	if strings.HasPrefix(field, "*/") {
		return "-" + strings.TrimPrefix(field, "*/")
	}
	return field
}
