// Package logtail implements the multi-file polling tailer (spec.md §4.9):
// interleaved, prefix-padded log lines with rotation detection by inode.
package logtail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ReplayLines is the default number of trailing lines replayed per file
// before entering the live loop.
const ReplayLines = 20

// pollInterval is how long the loop sleeps when no file advanced.
const pollInterval = time.Second

// Line is one emitted, prefix-tagged log line.
type Line struct {
	Prefix string
	Text   string
}

type tailedFile struct {
	path   string
	prefix string
	file   *os.File
	reader *bufio.Reader
	inode  uint64
}

// Tailer follows a set of files, emitting interleaved prefixed lines.
type Tailer struct {
	files []*tailedFile
}

// New opens each path, seeks to end, and records its inode. Prefixes are
// each path's basename without extension, padded with trailing spaces to the
// longest width.
func New(paths []string) (*Tailer, error) {
	prefixes := make([]string, len(paths))
	width := 0
	for i, p := range paths {
		base := filepath.Base(p)
		prefixes[i] = strings.TrimSuffix(base, filepath.Ext(base))
		if len(prefixes[i]) > width {
			width = len(prefixes[i])
		}
	}

	t := &Tailer{}
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			continue
		}
		inode, _ := inodeOf(f)
		t.files = append(t.files, &tailedFile{
			path:   p,
			prefix: padRight(prefixes[i], width),
			file:   f,
			reader: bufio.NewReader(f),
			inode:  inode,
		})
	}
	return t, nil
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func inodeOf(f *os.File) (uint64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("unsupported platform for inode tracking")
	}
	return sys.Ino, nil
}

// Replay reads the last n lines of every tracked file before Run's live
// loop starts, without disturbing the Tailer's end-of-file read position.
func Replay(paths []string, n int) ([]Line, error) {
	var out []Line
	prefixes := make(map[string]string, len(paths))
	width := 0
	for _, p := range paths {
		base := filepath.Base(p)
		pre := strings.TrimSuffix(base, filepath.Ext(base))
		prefixes[p] = pre
		if len(pre) > width {
			width = len(pre)
		}
	}

	for _, p := range paths {
		lines, err := lastLines(p, n)
		if err != nil {
			continue
		}
		prefix := padRight(prefixes[p], width)
		for _, l := range lines {
			out = append(out, Line{Prefix: prefix, Text: l})
		}
	}
	return out, nil
}

func lastLines(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) == 1 && all[0] == "" {
		return nil, nil
	}
	if len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}

// Run enters the polling loop, sending each newly read line to out until
// ctx is canceled. A file whose inode changes is treated as rotated and
// reopened from the start; a file that no longer exists is dropped.
func (t *Tailer) Run(ctx context.Context, out chan<- Line) error {
	defer t.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		advanced := false
		remaining := t.files[:0]
		for _, tf := range t.files {
			for {
				line, err := tf.reader.ReadString('\n')
				if line != "" {
					out <- Line{Prefix: tf.prefix, Text: strings.TrimRight(line, "\n")}
					advanced = true
				}
				if err != nil {
					break
				}
			}

			info, statErr := os.Stat(tf.path)
			if statErr != nil {
				tf.file.Close()
				continue // dropped: file no longer exists
			}
			remaining = append(remaining, tf)

			sys, ok := info.Sys().(*syscall.Stat_t)
			if ok && sys.Ino != tf.inode {
				tf.file.Close()
				if f, err := os.Open(tf.path); err == nil {
					tf.file = f
					tf.reader = bufio.NewReader(f)
					tf.inode = sys.Ino
				}
			}
		}
		t.files = remaining

		if len(t.files) == 0 {
			return nil
		}
		if !advanced {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		}
	}
}

// Close releases all open file handles.
func (t *Tailer) Close() {
	for _, tf := range t.files {
		tf.file.Close()
	}
}
