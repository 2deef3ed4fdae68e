// Package nginxconf renders and validates the nginx vhost configuration for
// one app (spec.md §4.7). Config text is built with text/template, the
// templating approach used throughout the pack for generated config files
// (other_examples/b8e15b79_dryaf-deploy__main.go.go).
package nginxconf

import (
	"strings"
	"text/template"

	"github.com/piku-host/piku/internal/settings"
)

// StaticMapping is one "/<url>:<path>" entry from NGINX_STATIC_PATHS.
type StaticMapping struct {
	URL  string
	Path string
}

// CacheConfig holds the NGINX_CACHE_* group (spec.md §4.7 step 8).
type CacheConfig struct {
	Prefixes   []string
	SizeGB     int
	ExpirySecs int
	Time       string
	Redirects  bool
	Any        bool
	Control    string
}

// Config is everything Generate needs to render one app's vhost.
type Config struct {
	App        string
	ServerName []string // NGINX_SERVER_NAME, space-separated domains

	IPv4        string
	IPv6        string
	BindAddress string
	DisableIPv6 bool

	Port int

	WSGIStyle  bool // web workers are wsgi/jwsgi/rwsgi, socket is a unix path
	SocketPath string

	StaticWorkerPath string // implicit "/" mapping when a "static" worker exists
	StaticMappings   []StaticMapping
	CatchAll         string // NGINX_CATCH_ALL, last try_files fallback before =404

	Cache *CacheConfig

	IncludeFileContents string // NGINX_INCLUDE_FILE, already variable-expanded
	AllowGitFolders     bool
	HTTPSOnly           bool

	ACLLines []string // pre-built "allow <cidr>;" / "deny all;" lines, or nil

	HTTP2Supported bool
	SPDYSupported  bool
	CertPath       string
	KeyPath        string

	// OnlyStaticOrWSGI is true when the worker set is exclusively "static"
	// or wsgi/jwsgi, which triggers the uwsgi_*->proxy_* rewrite in step 12.
	OnlyStaticOrWSGI  bool
	RewriteRemoteAddr bool // true when NGINX_CLOUDFLARE_ACL is set
}

// ExpandIncludeFile runs the include file's contents through the shared
// $VAR expander (spec.md §4.7 step 9) before it is inlined into Config.
func ExpandIncludeFile(contents string, env map[string]string) string {
	return settings.ExpandVars(contents, env)
}

var vhostTemplate = template.Must(template.New("vhost").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(vhostTemplateSrc))

// Generate renders the full server block(s) for cfg.
func Generate(cfg Config) (string, error) {
	var b strings.Builder
	if err := vhostTemplate.Execute(&b, cfg); err != nil {
		return "", err
	}
	return b.String(), nil
}

const vhostTemplateSrc = `
{{- if .ACLLines }}
# access control list
{{ range .ACLLines }}{{ . }}
{{ end -}}
{{- end }}

upstream {{ .App }} {
{{- if .WSGIStyle }}
    server unix:{{ .SocketPath }};
{{- else }}
    server {{ .BindAddress }}:{{ .Port }};
{{- end }}
}

{{- if .Cache }}
uwsgi_cache_path /piku-cache/{{ .App }} levels=1:2 keys_zone={{ .App }}:10m inactive={{ .Cache.ExpirySecs }}s max_size={{ .Cache.SizeGB }}g;
{{- end }}

server {
    listen {{ .BindAddress }}:80;
{{- if not .DisableIPv6 }}
    listen [{{ .IPv6 }}]:80;
{{- end }}
    server_name {{ join .ServerName " " }};

{{- if .HTTPSOnly }}
    return 301 https://$server_name$request_uri;
{{- else }}
{{ template "locations" . }}
{{- end }}
}

{{- if .CertPath }}
server {
    listen {{ .BindAddress }}:443 ssl{{ if .HTTP2Supported }} http2{{ else if .SPDYSupported }} spdy{{ end }};
{{- if not .DisableIPv6 }}
    listen [{{ .IPv6 }}]:443 ssl{{ if .HTTP2Supported }} http2{{ else if .SPDYSupported }} spdy{{ end }};
{{- end }}
    server_name {{ join .ServerName " " }};
    ssl_certificate {{ .CertPath }};
    ssl_certificate_key {{ .KeyPath }};

{{ template "locations" . }}
}
{{- end }}
`

func init() {
	template.Must(vhostTemplate.New("locations").Parse(locationsTemplateSrc))
}

const locationsTemplateSrc = `
{{- if not .AllowGitFolders }}
    location ~ /\.git {
        deny all;
        return 404;
    }
{{- end }}

{{- if .StaticWorkerPath }}
    location / {
        alias {{ .StaticWorkerPath }}/;
        sendfile on;
        directio 8m;
        aio threads;
        try_files $uri $uri.html $uri/ {{ if $.CatchAll }}{{ $.CatchAll }} {{ end }}=404;
    }
{{- end }}

{{- range .StaticMappings }}
    location {{ .URL }} {
        root {{ .Path }};
        sendfile on;
        directio 8m;
        aio threads;
        try_files $uri $uri.html $uri/ {{ if $.CatchAll }}{{ $.CatchAll }} {{ end }}=404;
    }
{{- end }}

{{- if .Cache }}
    location ~* ^/({{ join .Cache.Prefixes "|" }}) {
        uwsgi_cache {{ .App }};
        uwsgi_cache_valid 200 {{ .Cache.Time }};
{{- if .Cache.Redirects }}
        uwsgi_cache_valid 301 302 {{ .Cache.Time }};
{{- end }}
{{- if .Cache.Any }}
        uwsgi_cache_use_stale error timeout invalid_header updating;
{{- end }}
{{- if .Cache.Control }}
        add_header Cache-Control {{ .Cache.Control }};
{{- end }}
        include uwsgi_params;
{{- if .RewriteRemoteAddr }}
        uwsgi_param REMOTE_ADDR $http_cf_connecting_ip;
{{- end }}
{{- if .OnlyStaticOrWSGI }}
        proxy_pass http://{{ .App }};
{{- else }}
        uwsgi_pass {{ .App }};
{{- end }}
    }
{{- end }}

    location / {
        include uwsgi_params;
{{- if .RewriteRemoteAddr }}
        uwsgi_param REMOTE_ADDR $http_cf_connecting_ip;
{{- end }}
{{- if .OnlyStaticOrWSGI }}
        proxy_pass http://{{ .App }};
{{- else }}
        uwsgi_pass {{ .App }};
{{- end }}
    }
`
