package sshauth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAuthorizeAppendsRestrictedCommandLine(t *testing.T) {
	dir := t.TempDir()
	err := Authorize(dir, "/usr/local/bin/piku", "abc123", "default", "ssh-ed25519 AAAAB3NzaC1 user@host")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "authorized_keys"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `command="FINGERPRINT=abc123 NAME=default /usr/local/bin/piku $SSH_ORIGINAL_COMMAND"`) {
		t.Fatalf("unexpected line: %s", line)
	}
	if !strings.Contains(line, "no-agent-forwarding,no-user-rc,no-X11-forwarding,no-port-forwarding ssh-ed25519 AAAAB3NzaC1") {
		t.Fatalf("unexpected restriction flags: %s", line)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if info.Mode().Perm() != 0700 {
		t.Fatalf("expected 0700 dir perms, got %o", info.Mode().Perm())
	}

	keyInfo, err := os.Stat(filepath.Join(dir, "authorized_keys"))
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if keyInfo.Mode().Perm() != 0600 {
		t.Fatalf("expected 0600 file perms, got %o", keyInfo.Mode().Perm())
	}
}

func TestAuthorizeAppendsMultipleKeys(t *testing.T) {
	dir := t.TempDir()
	Authorize(dir, "/usr/local/bin/piku", "fp1", "default", "ssh-ed25519 AAA1 a@b")
	Authorize(dir, "/usr/local/bin/piku", "fp2", "default", "ssh-ed25519 AAA2 c@d")

	data, err := os.ReadFile(filepath.Join(dir, "authorized_keys"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
}

func TestRemoveDropsOnlyMatchingFingerprint(t *testing.T) {
	dir := t.TempDir()
	Authorize(dir, "/usr/local/bin/piku", "fp1", "default", "ssh-ed25519 AAA1 a@b")
	Authorize(dir, "/usr/local/bin/piku", "fp2", "default", "ssh-ed25519 AAA2 c@d")

	if err := Remove(dir, "fp1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "authorized_keys"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "FINGERPRINT=fp1") {
		t.Fatalf("expected fp1 removed, got: %s", data)
	}
	if !strings.Contains(string(data), "FINGERPRINT=fp2") {
		t.Fatalf("expected fp2 kept, got: %s", data)
	}
}

func TestRemoveMissingFileIsNoop(t *testing.T) {
	dir := t.TempDir()
	if err := Remove(dir, "whatever"); err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
}
