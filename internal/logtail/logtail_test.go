package logtail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := f.WriteString(l + "\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestReplayReturnsLastNLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "web.1.log")
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = fmt.Sprintf("line-%d", i)
	}
	writeLines(t, path, lines...)

	got, err := Replay([]string{path}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(got))
	}
	if got[0].Text != "line-10" || got[19].Text != "line-29" {
		t.Fatalf("unexpected window: first=%q last=%q", got[0].Text, got[19].Text)
	}
	if got[0].Prefix != "web.1" {
		t.Fatalf("unexpected prefix: %q", got[0].Prefix)
	}
}

func TestReplayPadsPrefixesToWidestBasename(t *testing.T) {
	dir := t.TempDir()
	shortPath := filepath.Join(dir, "web.log")
	longPath := filepath.Join(dir, "worker.log")
	writeLines(t, shortPath, "a")
	writeLines(t, longPath, "b")

	got, err := Replay([]string{shortPath, longPath}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, l := range got {
		if len(l.Prefix) != len("worker") {
			t.Fatalf("expected prefix padded to %d, got %q", len("worker"), l.Prefix)
		}
	}
}

func TestRunEmitsNewlyAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "web.log")
	writeLines(t, path, "first")

	tailer, err := New([]string{path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := make(chan Line, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 2*pollInterval)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- tailer.Run(ctx, out) }()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	f.WriteString("second\n")
	f.Close()

	var received []Line
loop:
	for {
		select {
		case l := <-out:
			received = append(received, l)
		case <-done:
			break loop
		}
	}

	found := false
	for _, l := range received {
		if l.Text == "second" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected to observe appended line, got %v", received)
	}
}

func TestRunDropsFileThatNoLongerExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "web.log")
	writeLines(t, path, "first")

	tailer, err := New([]string{path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	os.Remove(path)

	out := make(chan Line, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = tailer.Run(ctx, out)
	if err != nil && err != context.DeadlineExceeded {
		t.Fatalf("unexpected error: %v", err)
	}
}
