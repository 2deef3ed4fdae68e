// Package runtimes wires every providers/<lang> package into one Registry
// in the exact priority order spec.md §4.4 specifies. It is the composition
// root for runtime detection, kept separate from internal/detector so that
// package has no dependency on the concrete providers (DESIGN NOTES §9).
package runtimes

import (
	"github.com/piku-host/piku/internal/detector"
	"github.com/piku-host/piku/internal/pikuconfig"
	"github.com/piku-host/piku/providers/clojure"
	"github.com/piku-host/piku/providers/golang"
	"github.com/piku-host/piku/providers/identity"
	"github.com/piku-host/piku/providers/java"
	"github.com/piku-host/piku/providers/node"
	"github.com/piku-host/piku/providers/php"
	"github.com/piku-host/piku/providers/python"
	"github.com/piku-host/piku/providers/ruby"
	"github.com/piku-host/piku/providers/rust"
)

// Build returns a Registry with every provider registered in spec.md §4.4
// priority order, minus any runtime named in cfg.DisabledRuntimes.
func Build(cfg pikuconfig.Config) *detector.Registry {
	registry := detector.NewRegistry()

	python.RegisterAll(registry)  // 1-2: requirements.txt, pyproject.toml (poetry/uv)
	ruby.RegisterAll(registry)    // 3: Gemfile
	node.RegisterAll(registry)    // 4: package.json
	java.RegisterAll(registry)    // 5-6: pom.xml, build.gradle
	golang.RegisterAll(registry)  // 7: Godeps/go.mod/*.go
	clojure.RegisterAll(registry) // 8-9: deps.edn, project.clj
	php.RegisterAll(registry)     // 10: Procfile declares php
	rust.RegisterAll(registry)    // 11: Cargo.toml + rust-toolchain.toml
	identity.RegisterAll(registry) // 12: release+web or static

	return filterDisabled(registry, cfg.DisabledRuntimes)
}

func filterDisabled(registry *detector.Registry, disabled []string) *detector.Registry {
	if len(disabled) == 0 {
		return registry
	}
	skip := make(map[string]struct{}, len(disabled))
	for _, name := range disabled {
		skip[name] = struct{}{}
	}
	filtered := detector.NewRegistry()
	for _, p := range registry.Providers() {
		if _, ok := skip[p.Name()]; ok {
			continue
		}
		filtered.Register(p)
	}
	return filtered
}
