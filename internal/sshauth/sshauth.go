// Package sshauth writes the restricted-command authorized_keys lines that
// route SSH access exclusively through piku's internal CLI verbs
// (spec.md §4.11).
package sshauth

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	pikuerrors "github.com/piku-host/piku/internal/errors"
)

// Fingerprint runs `ssh-keygen -lf` against a public key file and returns
// its fingerprint field (the second whitespace-separated token of the
// single line of output).
func Fingerprint(ctx context.Context, pubKeyPath string) (string, error) {
	out, err := exec.CommandContext(ctx, "ssh-keygen", "-lf", pubKeyPath).Output()
	if err != nil {
		return "", pikuerrors.ErrFingerprintFailed
	}
	fields := strings.Fields(string(out))
	if len(fields) < 2 {
		return "", pikuerrors.ErrFingerprintFailed
	}
	return fields[1], nil
}

// Authorize appends a restricted-command line to sshDir/authorized_keys for
// pubKeyLine ("ssh-ed25519 AAAA... comment"), routed through scriptPath with
// fingerprint embedded so the CLI can identify the caller (spec.md §4.11).
func Authorize(sshDir, scriptPath, fingerprint, name, pubKeyLine string) error {
	if err := os.MkdirAll(sshDir, 0700); err != nil {
		return err
	}
	if err := os.Chmod(sshDir, 0700); err != nil {
		return err
	}

	keyFields := strings.Fields(pubKeyLine)
	if len(keyFields) < 2 {
		return fmt.Errorf("malformed public key line: %q", pubKeyLine)
	}
	pubKey := keyFields[0] + " " + keyFields[1]

	line := fmt.Sprintf(
		`command="FINGERPRINT=%s NAME=%s %s $SSH_ORIGINAL_COMMAND",no-agent-forwarding,no-user-rc,no-X11-forwarding,no-port-forwarding %s`,
		fingerprint, name, scriptPath, pubKey,
	)

	path := filepath.Join(sshDir, "authorized_keys")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return err
	}
	return os.Chmod(path, 0600)
}

// Remove rewrites authorized_keys without any line whose embedded
// FINGERPRINT matches fingerprint (the `setup:ssh --remove` verb).
func Remove(sshDir, fingerprint string) error {
	path := filepath.Join(sshDir, "authorized_keys")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	marker := "FINGERPRINT=" + fingerprint + " "
	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		if strings.Contains(line, marker) {
			continue
		}
		kept = append(kept, line)
	}

	content := strings.Join(kept, "\n")
	if len(kept) > 0 {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0600)
}
