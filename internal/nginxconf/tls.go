package nginxconf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piku-host/piku/internal/buildutil"
)

// TLSRequest carries the paths and domains needed to acquire (or
// self-sign) one app's certificate, spec.md §4.7 step 5.
type TLSRequest struct {
	App      string
	Domains  []string
	ACMERoot string // directory expected to hold acme.sh
	ACMEWWW  string // HTTP-01 webroot
	CA       string // --server value, e.g. letsencrypt
	NginxDir string // destination for <app>.key/<app>.crt
}

func (r TLSRequest) keyPath() string { return filepath.Join(r.NginxDir, r.App+".key") }
func (r TLSRequest) crtPath() string { return filepath.Join(r.NginxDir, r.App+".crt") }

// AcmeAvailable reports whether ACME_ROOT/acme.sh exists.
func AcmeAvailable(acmeRoot string) bool {
	info, err := os.Stat(filepath.Join(acmeRoot, "acme.sh"))
	return err == nil && !info.IsDir()
}

// NeedsIssuance reports whether req's key is missing, or any domain lacks
// its "issued" marker under ACME_ROOT.
func NeedsIssuance(req TLSRequest) bool {
	if _, err := os.Stat(req.keyPath()); err != nil {
		return true
	}
	for _, d := range req.Domains {
		if _, err := os.Stat(filepath.Join(req.ACMERoot, ".issued-"+d)); err != nil {
			return true
		}
	}
	return false
}

// FirstrunConfig is the minimal server block served before a certificate
// exists, so acme.sh's HTTP-01 challenge can be answered (spec.md §4.7
// step 5, "ACME firstrun" conf). The challenge location is served from
// cfg.StaticWorkerPath, which the caller sets to the ACME webroot.
func FirstrunConfig(cfg Config) string {
	return fmt.Sprintf(`server {
    listen %s:80;
    server_name %s;

    location /.well-known/acme-challenge/ {
        root %s;
    }

    location / {
        return 404;
    }
}
`, cfg.BindAddress, joinDomains(cfg.ServerName), filepath.Clean(cfg.StaticWorkerPath))
}

func joinDomains(domains []string) string {
	out := ""
	for i, d := range domains {
		if i > 0 {
			out += " "
		}
		out += d
	}
	return out
}

// IssueCertificate drives acme.sh to issue and install a certificate for
// req, then records the per-domain issued markers and the ACME_WWW symlink.
func IssueCertificate(ctx context.Context, req TLSRequest) error {
	acmeBin := filepath.Join(req.ACMERoot, "acme.sh")

	issueArgs := []string{"--issue"}
	for _, d := range req.Domains {
		issueArgs = append(issueArgs, "-d", d)
	}
	issueArgs = append(issueArgs, "-w", req.ACMEWWW, "--server", req.CA)
	if err := buildutil.Run(ctx, "", nil, acmeBin, issueArgs...); err != nil {
		return err
	}

	installArgs := []string{
		"--install-cert", "-d", req.Domains[0],
		"--key-file", req.keyPath(), "--fullchain-file", req.crtPath(),
	}
	if err := buildutil.Run(ctx, "", nil, acmeBin, installArgs...); err != nil {
		return err
	}

	for _, d := range req.Domains {
		link := filepath.Join(req.ACMEWWW, req.App)
		_ = os.Remove(link)
		if err := os.Symlink(filepath.Join(req.ACMERoot, d), link); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(req.ACMERoot, ".issued-"+d), nil, 0644); err != nil {
			return err
		}
	}
	return nil
}

// SelfSignCertificate synthesizes a self-signed RSA-4096 1-year certificate
// when acme.sh is unavailable or issuance still left the cert missing
// (spec.md §4.7 step 5, final fallback).
func SelfSignCertificate(ctx context.Context, req TLSRequest) error {
	if _, err := os.Stat(req.crtPath()); err == nil {
		return nil
	}
	subject := "/CN=" + req.Domains[0]
	return buildutil.Run(ctx, "", nil, "openssl", "req", "-x509", "-nodes",
		"-newkey", "rsa:4096",
		"-keyout", req.keyPath(),
		"-out", req.crtPath(),
		"-days", "365",
		"-subj", subject,
	)
}
