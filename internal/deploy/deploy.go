// Package deploy wires detection, building, reconciliation, vassal
// generation and nginx configuration into do_deploy(app, newrev), the
// pipeline spec.md §5 names as the core ordering guarantee:
// fetch -> reset -> submodule update -> preflight -> build -> release ->
// write LIVE_ENV/SCALING -> auto-restart prune -> create new vassals ->
// unlink destroyed vassals, with the nginx conf written before new vassals.
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/piku-host/piku/internal/buildutil"
	"github.com/piku-host/piku/internal/detector"
	pikuerrors "github.com/piku-host/piku/internal/errors"
	"github.com/piku-host/piku/internal/githook"
	"github.com/piku-host/piku/internal/nginxconf"
	"github.com/piku-host/piku/internal/pikuconfig"
	"github.com/piku-host/piku/internal/procfile"
	"github.com/piku-host/piku/internal/reconciler"
	"github.com/piku-host/piku/internal/runtimes"
	"github.com/piku-host/piku/internal/settings"
	"github.com/piku-host/piku/internal/termcolor"
	"github.com/piku-host/piku/internal/vassal"
)

// Deployer holds everything do_deploy needs beyond the (app, newrev) pair.
type Deployer struct {
	Config pikuconfig.Config
}

// New creates a Deployer over cfg.
func New(cfg pikuconfig.Config) *Deployer {
	return &Deployer{Config: cfg}
}

// Deploy implements do_deploy(app, newrev): the full spec.md §5 ordering.
func (d *Deployer) Deploy(ctx context.Context, app, newRev string) error {
	cfg := d.Config
	appPath := cfg.AppPath(app)

	if err := githook.FetchResetSubmodules(ctx, appPath, newRev); err != nil {
		return fmt.Errorf("fetch/reset: %w", err)
	}

	pf, err := procfile.Parse(filepath.Join(appPath, "Procfile"))
	if err != nil {
		return err
	}

	env, err := loadEnv(cfg, app)
	if err != nil {
		return err
	}

	appCtx := detector.AppContext{
		AppPath:  appPath,
		EnvPath:  cfg.EnvPath(app),
		Procfile: pf,
		Env:      env,
	}

	if cmd, ok := pf.Commands[procfile.KindPreflight]; ok {
		if err := runHook(ctx, appPath, env, cmd); err != nil {
			return fmt.Errorf("preflight hook: %w", pikuerrors.ErrHookFailed)
		}
	}

	registry := runtimes.Build(cfg)
	provider, err := detector.New(registry).Detect(ctx, appCtx)
	if err != nil {
		return err
	}
	termcolor.Progress("detected runtime %s for %s", provider.Name(), app)

	builderEnv, err := provider.Build(ctx, appCtx)
	if err != nil {
		return err
	}
	env = settings.Merge(env, settings.ToMap(builderEnv))

	if cmd, ok := pf.Commands[procfile.KindRelease]; ok {
		if err := runHook(ctx, appPath, env, cmd); err != nil {
			return fmt.Errorf("release hook: %w", pikuerrors.ErrHookFailed)
		}
	}

	if env["PORT"] == "" {
		port, err := nginxconf.AllocatePort()
		if err != nil {
			return fmt.Errorf("allocate port: %w", err)
		}
		env["PORT"] = strconv.Itoa(port)
	}

	if err := writeLiveEnv(cfg, app, env); err != nil {
		return err
	}

	plan, err := d.reconcile(cfg, app, pf)
	if err != nil {
		return err
	}
	if err := settings.Write(filepath.Join(cfg.EnvPath(app), "SCALING"), ':', intMapToStrMap(plan.Scaling), pf.WorkerKinds()); err != nil {
		return err
	}

	if err := d.writeNginxConf(ctx, app, pf, env); err != nil {
		return err
	}

	return d.applyPlan(cfg, app, appPath, env, plan, pf)
}

func loadEnv(cfg pikuconfig.Config, app string) (map[string]string, error) {
	shipped, err := settings.Parse(filepath.Join(cfg.AppPath(app), "ENV"), '=')
	if err != nil {
		return nil, err
	}
	override, err := settings.Parse(filepath.Join(cfg.EnvPath(app), "ENV"), '=')
	if err != nil {
		return nil, err
	}
	return settings.Merge(shipped, override), nil
}

func writeLiveEnv(cfg pikuconfig.Config, app string, env map[string]string) error {
	if err := os.MkdirAll(cfg.EnvPath(app), 0755); err != nil {
		return err
	}
	return settings.Write(filepath.Join(cfg.EnvPath(app), "LIVE_ENV"), '=', env, nil)
}

func runHook(ctx context.Context, appPath string, env map[string]string, cmd string) error {
	return buildutil.Run(ctx, appPath, settings.ToEnvSlice(env), "sh", "-c", cmd)
}

func intMapToStrMap(m map[string]int) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprintf("%d", v)
	}
	return out
}

func (d *Deployer) reconcile(cfg pikuconfig.Config, app string, pf *procfile.Procfile) (reconciler.Plan, error) {
	return d.reconcileWithDeltas(cfg, app, pf, map[string]int{})
}

func (d *Deployer) reconcileWithDeltas(cfg pikuconfig.Config, app string, pf *procfile.Procfile, deltas map[string]int) (reconciler.Plan, error) {
	current, err := readScaling(cfg, app)
	if err != nil {
		return reconciler.Plan{}, err
	}
	existingByKind, err := vassal.ListForApp(cfg.UwsgiEnabledDir(), app)
	if err != nil {
		return reconciler.Plan{}, err
	}
	existing := make(map[reconciler.WorkerRef]bool)
	for kind, ords := range existingByKind {
		for ord := range ords {
			existing[reconciler.WorkerRef{Kind: kind, Ordinal: ord}] = true
		}
	}

	return reconciler.Reconcile(reconciler.Input{
		ProcfileKinds: pf.WorkerKinds(),
		Current:       current,
		Deltas:        deltas,
		Existing:      existing,
		AutoRestart:   cfg.AutoRestart,
	})
}

// Scale applies explicit per-kind deltas outside of a deploy (piku ps:scale),
// reusing the same reconcile/write-SCALING/apply-plan sequence as Deploy but
// without rebuilding or touching nginx.
func (d *Deployer) Scale(ctx context.Context, app string, deltas map[string]int) (reconciler.Plan, error) {
	cfg := d.Config
	appPath := cfg.AppPath(app)

	pf, err := procfile.Parse(filepath.Join(appPath, "Procfile"))
	if err != nil {
		return reconciler.Plan{}, err
	}

	plan, err := d.reconcileWithDeltas(cfg, app, pf, deltas)
	if err != nil {
		return reconciler.Plan{}, err
	}
	if err := settings.Write(filepath.Join(cfg.EnvPath(app), "SCALING"), ':', intMapToStrMap(plan.Scaling), pf.WorkerKinds()); err != nil {
		return reconciler.Plan{}, err
	}

	env, err := settings.Parse(filepath.Join(cfg.EnvPath(app), "LIVE_ENV"), '=')
	if err != nil {
		return reconciler.Plan{}, err
	}
	if err := d.applyPlan(cfg, app, appPath, env, plan, pf); err != nil {
		return reconciler.Plan{}, err
	}
	return plan, nil
}

// CurrentScaling reads the last-written SCALING map for app.
func (d *Deployer) CurrentScaling(app string) (map[string]int, error) {
	return readScaling(d.Config, app)
}

// StopAll unlinks every currently enabled vassal for app, leaving its logs
// and SCALING map untouched (spec.md §4.10 "stop").
func (d *Deployer) StopAll(app string) error {
	enabled, err := vassal.ListForApp(d.Config.UwsgiEnabledDir(), app)
	if err != nil {
		return err
	}
	for kind, ords := range enabled {
		for ord := range ords {
			if err := vassal.Unlink(d.Config.UwsgiEnabledDir(), app, kind, ord); err != nil {
				return err
			}
		}
	}
	return nil
}

// Restart stops every vassal then recreates them from the existing
// SCALING/LIVE_ENV without rebuilding (spec.md §4.10 "restart").
func (d *Deployer) Restart(ctx context.Context, app string) error {
	if err := d.StopAll(app); err != nil {
		return err
	}
	_, err := d.Scale(ctx, app, map[string]int{})
	return err
}

func readScaling(cfg pikuconfig.Config, app string) (map[string]int, error) {
	dict, err := settings.Parse(filepath.Join(cfg.EnvPath(app), "SCALING"), ':')
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(dict))
	for k, v := range dict {
		var n int
		fmt.Sscanf(v, "%d", &n)
		out[k] = n
	}
	return out, nil
}

func (d *Deployer) writeNginxConf(ctx context.Context, app string, pf *procfile.Procfile, env map[string]string) error {
	serverName := env["NGINX_SERVER_NAME"]
	if serverName == "" {
		return nil
	}
	relevant := pf.Has(procfile.KindWeb) || pf.HasAnyWSGI() || pf.Has(procfile.KindStatic) || pf.Has(procfile.KindPHP)
	if !relevant {
		return nil
	}

	cfg, err := buildNginxConfig(ctx, d.Config, app, pf, env)
	if err != nil {
		return err
	}

	if err := d.acquireTLS(ctx, app, &cfg, env); err != nil {
		return err
	}

	rendered, err := nginxconf.Generate(cfg)
	if err != nil {
		return err
	}
	_, err = nginxconf.WriteAndValidate(ctx, d.Config.NginxDir(), app, rendered)
	return err
}

// acquireTLS implements spec.md §4.7 step 5: try acme.sh when ACME_ROOT/acme.sh
// exists and issuance is still needed, writing the ACME firstrun conf first so
// the HTTP-01 challenge can be answered; fall back to a self-signed cert when
// acme.sh is unavailable or still leaves the cert missing.
func (d *Deployer) acquireTLS(ctx context.Context, app string, nc *nginxconf.Config, env map[string]string) error {
	req := nginxconf.TLSRequest{
		App:      app,
		Domains:  nc.ServerName,
		ACMERoot: d.Config.AcmeDir(),
		ACMEWWW:  env["ACME_WWW"],
		CA:       env["ACME_CA"],
		NginxDir: d.Config.NginxDir(),
	}
	if req.CA == "" {
		req.CA = "letsencrypt"
	}
	if req.ACMEWWW == "" {
		req.ACMEWWW = req.ACMERoot
	}

	if nginxconf.AcmeAvailable(req.ACMERoot) && nginxconf.NeedsIssuance(req) {
		firstrunCfg := *nc
		firstrunCfg.StaticWorkerPath = req.ACMEWWW
		firstrun := nginxconf.FirstrunConfig(firstrunCfg)
		if _, err := nginxconf.WriteAndValidate(ctx, d.Config.NginxDir(), app, firstrun); err != nil {
			return err
		}
		if err := nginxconf.IssueCertificate(ctx, req); err != nil {
			termcolor.Progress("acme.sh issuance failed for %s, falling back to self-signed: %v", app, err)
		}
	}

	keyPath := filepath.Join(d.Config.NginxDir(), app+".key")
	crtPath := filepath.Join(d.Config.NginxDir(), app+".crt")
	if _, err := os.Stat(crtPath); err != nil {
		if err := nginxconf.SelfSignCertificate(ctx, req); err != nil {
			return fmt.Errorf("self-sign certificate: %w", err)
		}
	}
	nc.CertPath = crtPath
	nc.KeyPath = keyPath
	return nil
}

func (d *Deployer) applyPlan(cfg pikuconfig.Config, app, appPath string, env map[string]string, plan reconciler.Plan, pf *procfile.Procfile) error {
	logDir := cfg.LogPath(app)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	vassalEnv := env
	if env["NGINX_SERVER_NAME"] != "" {
		vassalEnv = settings.Merge(env, map[string]string{"NGINX_ROOT": cfg.NginxDir()})
	}

	recreate := make(map[reconciler.WorkerRef]bool, len(plan.Create))
	for _, ref := range plan.Create {
		recreate[ref] = true
	}
	// Auto-restart prune: unlink vassals that are rewritten below first.
	for _, ref := range plan.Destroy {
		if recreate[ref] {
			if err := vassal.Unlink(cfg.UwsgiEnabledDir(), app, ref.Kind, ref.Ordinal); err != nil {
				return err
			}
		}
	}

	for _, ref := range plan.Create {
		cmd := pf.Commands[ref.Kind]
		spec := vassal.Spec{
			App:         app,
			Kind:        ref.Kind,
			Ordinal:     ref.Ordinal,
			Cmd:         cmd,
			AppPath:     appPath,
			LogDir:      logDir,
			MaxRequests: 1000000,
			Processes:   1,
			Env:         vassalEnv,
		}
		if _, err := vassal.Write(cfg.UwsgiEnabledDir(), spec); err != nil {
			return err
		}
	}
	for _, ref := range plan.Destroy {
		if recreate[ref] {
			continue
		}
		if err := vassal.Unlink(cfg.UwsgiEnabledDir(), app, ref.Kind, ref.Ordinal); err != nil {
			return err
		}
	}
	return nil
}

func buildNginxConfig(ctx context.Context, cfg pikuconfig.Config, app string, pf *procfile.Procfile, env map[string]string) (nginxconf.Config, error) {
	bind := env["BIND_ADDRESS"]
	if bind == "" {
		bind = "127.0.0.1"
	}
	ipv4 := env["NGINX_IPV4_ADDRESS"]
	if ipv4 == "" {
		ipv4 = "0.0.0.0"
	}
	ipv6 := env["NGINX_IPV6_ADDRESS"]
	if ipv6 == "" {
		ipv6 = "::"
	}

	nc := nginxconf.Config{
		App:               app,
		ServerName:        splitServerName(env["NGINX_SERVER_NAME"]),
		IPv4:              ipv4,
		BindAddress:       bind,
		IPv6:              ipv6,
		DisableIPv6:       isTruthy(env["DISABLE_IPV6"]),
		WSGIStyle:         pf.HasAnyWSGI(),
		SocketPath:        filepath.Join(cfg.NginxDir(), app+".sock"),
		AllowGitFolders:   isTruthy(env["NGINX_ALLOW_GIT_FOLDERS"]),
		HTTPSOnly:         isTruthy(env["NGINX_HTTPS_ONLY"]),
		OnlyStaticOrWSGI:  onlyStaticOrWSGI(pf),
		RewriteRemoteAddr: isTruthy(env["NGINX_CLOUDFLARE_ACL"]),
		CatchAll:          env["NGINX_CATCH_ALL"],
	}
	if port := env["PORT"]; port != "" {
		fmt.Sscanf(port, "%d", &nc.Port)
	}
	if pf.Has(procfile.KindStatic) {
		nc.StaticWorkerPath = filepath.Join(cfg.AppPath(app), pf.Commands[procfile.KindStatic])
	}

	nc.StaticMappings = parseStaticPaths(env["NGINX_STATIC_PATHS"])
	nc.Cache = buildCacheConfig(env)

	if isTruthy(env["NGINX_CLOUDFLARE_ACL"]) {
		acl, err := nginxconf.FetchCloudflareACL(ctx, !nc.DisableIPv6, sshClientIP())
		if err != nil {
			return nc, fmt.Errorf("fetch cloudflare acl: %w", err)
		}
		nc.ACLLines = acl
	}

	features := nginxconf.DetectFeatures(ctx)
	nc.HTTP2Supported = features.HTTP2
	nc.SPDYSupported = features.SPDY

	if includeFile := env["NGINX_INCLUDE_FILE"]; includeFile != "" {
		if !filepath.IsAbs(includeFile) {
			includeFile = filepath.Join(cfg.AppPath(app), includeFile)
		}
		contents, err := os.ReadFile(includeFile)
		if err != nil {
			return nc, fmt.Errorf("read NGINX_INCLUDE_FILE: %w", err)
		}
		nc.IncludeFileContents = nginxconf.ExpandIncludeFile(string(contents), env)
	}

	return nc, nil
}

// parseStaticPaths parses NGINX_STATIC_PATHS as "/<url>:<path>[,...]"
// (spec.md §4.7 step 7).
func parseStaticPaths(raw string) []nginxconf.StaticMapping {
	if raw == "" {
		return nil
	}
	var mappings []nginxconf.StaticMapping
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		url, path, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		mappings = append(mappings, nginxconf.StaticMapping{URL: url, Path: path})
	}
	return mappings
}

// buildCacheConfig reads the NGINX_CACHE_* group (spec.md §4.7 step 8).
func buildCacheConfig(env map[string]string) *nginxconf.CacheConfig {
	prefixes := env["NGINX_CACHE_PREFIXES"]
	if prefixes == "" {
		return nil
	}
	sizeGB := 1
	if v := env["NGINX_CACHE_SIZE"]; v != "" {
		fmt.Sscanf(v, "%d", &sizeGB)
	}
	expirySecs := 86400
	if v := env["NGINX_CACHE_EXPIRY"]; v != "" {
		fmt.Sscanf(v, "%d", &expirySecs)
	}
	return &nginxconf.CacheConfig{
		Prefixes:   strings.Split(prefixes, "|"),
		SizeGB:     sizeGB,
		ExpirySecs: expirySecs,
		Time:       env["NGINX_CACHE_TIME"],
		Redirects:  isTruthy(env["NGINX_CACHE_REDIRECTS"]),
		Any:        isTruthy(env["NGINX_CACHE_ANY"]),
		Control:    env["NGINX_CACHE_CONTROL"],
	}
}

// sshClientIP returns the caller's IP from the inherited SSH_CLIENT env var
// (its first whitespace-separated field), or "" outside an SSH session.
func sshClientIP() string {
	fields := strings.Fields(os.Getenv("SSH_CLIENT"))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func onlyStaticOrWSGI(pf *procfile.Procfile) bool {
	kinds := pf.WorkerKinds()
	for _, k := range kinds {
		if k != procfile.KindStatic && k != procfile.KindWSGI && k != procfile.KindJWSGI {
			return false
		}
	}
	return true
}

func splitServerName(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' || r == ',' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "True", "TRUE", "yes", "on":
		return true
	default:
		return false
	}
}
