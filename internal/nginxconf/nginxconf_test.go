package nginxconf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateDeniesGitByDefault(t *testing.T) {
	cfg := Config{
		App:         "myapp",
		ServerName:  []string{"example.com"},
		BindAddress: "0.0.0.0",
		IPv6:        "::",
		Port:        8000,
	}
	out, err := Generate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `location ~ /\.git`) {
		t.Fatalf("expected .git denial, got:\n%s", out)
	}
}

func TestGenerateAllowsGitWhenConfigured(t *testing.T) {
	cfg := Config{App: "myapp", ServerName: []string{"example.com"}, BindAddress: "0.0.0.0", IPv6: "::", AllowGitFolders: true}
	out, err := Generate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, `location ~ /\.git`) {
		t.Fatalf("expected no .git denial, got:\n%s", out)
	}
}

func TestGenerateHTTPSOnlyRedirect(t *testing.T) {
	cfg := Config{App: "myapp", ServerName: []string{"example.com"}, BindAddress: "0.0.0.0", IPv6: "::", HTTPSOnly: true}
	out, err := Generate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "return 301 https://$server_name$request_uri;") {
		t.Fatalf("expected https redirect, got:\n%s", out)
	}
}

func TestGenerateStaticMappings(t *testing.T) {
	cfg := Config{
		App:            "myapp",
		ServerName:     []string{"example.com"},
		BindAddress:    "0.0.0.0",
		IPv6:           "::",
		StaticMappings: []StaticMapping{{URL: "/assets", Path: "/piku/apps/myapp/assets"}},
	}
	out, err := Generate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "location /assets {") || !strings.Contains(out, "root /piku/apps/myapp/assets;") {
		t.Fatalf("expected static mapping block, got:\n%s", out)
	}
}

func TestGenerateStaticWorkerPathUsesAliasWithCatchAll(t *testing.T) {
	cfg := Config{
		App:              "demo",
		ServerName:       []string{"example.test"},
		BindAddress:      "0.0.0.0",
		IPv6:             "::",
		StaticWorkerPath: "/piku/apps/demo/public",
		CatchAll:         "/index.html",
	}
	out, err := Generate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "alias /piku/apps/demo/public/;") {
		t.Fatalf("expected alias with trailing slash, got:\n%s", out)
	}
	if !strings.Contains(out, "try_files $uri $uri.html $uri/ /index.html =404;") {
		t.Fatalf("expected catch-all in try_files, got:\n%s", out)
	}
}

func TestGenerateCacheMapping(t *testing.T) {
	cfg := Config{
		App:         "myapp",
		ServerName:  []string{"example.com"},
		BindAddress: "0.0.0.0",
		IPv6:        "::",
		Cache: &CacheConfig{
			Prefixes:   []string{"api", "static"},
			SizeGB:     1,
			ExpirySecs: 86400,
			Time:       "10m",
		},
	}
	out, err := Generate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "uwsgi_cache_path") {
		t.Fatalf("expected uwsgi_cache_path directive, got:\n%s", out)
	}
	if !strings.Contains(out, "location ~* ^/(api|static)") {
		t.Fatalf("expected cache location regex, got:\n%s", out)
	}
}

func TestGenerateWSGIStyleUsesUnixSocketUpstream(t *testing.T) {
	cfg := Config{
		App:         "myapp",
		ServerName:  []string{"example.com"},
		BindAddress: "0.0.0.0",
		IPv6:        "::",
		WSGIStyle:   true,
		SocketPath:  "/piku/nginx/myapp.sock",
	}
	out, err := Generate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "server unix:/piku/nginx/myapp.sock;") {
		t.Fatalf("expected unix socket upstream, got:\n%s", out)
	}
}

func TestGenerateOnlyStaticOrWSGIRewritesToProxy(t *testing.T) {
	cfg := Config{
		App:              "myapp",
		ServerName:       []string{"example.com"},
		BindAddress:      "0.0.0.0",
		IPv6:             "::",
		OnlyStaticOrWSGI: true,
	}
	out, err := Generate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "proxy_pass http://myapp;") {
		t.Fatalf("expected proxy_pass rewrite, got:\n%s", out)
	}
	if strings.Contains(out, "uwsgi_pass myapp;") {
		t.Fatalf("did not expect uwsgi_pass when OnlyStaticOrWSGI, got:\n%s", out)
	}
}

func TestFetchCloudflareACLAppendsSSHClientAndDefaultDeny(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result": map[string]interface{}{
				"ipv4_cidrs": []string{"1.2.3.0/24"},
				"ipv6_cidrs": []string{"2400::/32"},
			},
		})
	}))
	defer srv.Close()

	orig := cloudflareIPsURL
	cloudflareIPsURL = srv.URL
	defer func() { cloudflareIPsURL = orig }()

	lines, err := FetchCloudflareACL(context.Background(), false, "9.9.9.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"allow 1.2.3.0/24;", "allow 9.9.9.9;", "allow 127.0.0.1;", "deny all;"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, lines)
		}
	}
}

func TestAllocatePortReturnsUsablePort(t *testing.T) {
	port, err := AllocatePort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port <= 0 || port > 65535 {
		t.Fatalf("unexpected port: %d", port)
	}
}
