// Package java detects and builds JVM projects via Maven or Gradle
// (spec.md §4.4 steps 5-6).
package java

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/piku-host/piku/internal/buildutil"
	"github.com/piku-host/piku/internal/detector"
)

// RegisterAll registers Maven then Gradle, in spec.md's priority order.
func RegisterAll(registry *detector.Registry) {
	registry.Register(&mavenProvider{detector.BaseProvider{ProviderName: "java-maven", ProviderLanguage: "java"}})
	registry.Register(&gradleProvider{detector.BaseProvider{ProviderName: "java-gradle", ProviderLanguage: "java"}})
}

type mavenProvider struct{ detector.BaseProvider }

func (p *mavenProvider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	return detector.HasFile(app.AppPath, "pom.xml"), nil
}

func (p *mavenProvider) RequiredBinaries() []string { return []string{"mvn"} }

func (p *mavenProvider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "pom.xml")
	repo := filepath.Join(app.EnvPath, "m2repo")
	if detector.NewerThan(manifest, app.EnvPath) {
		if err := buildutil.Run(ctx, app.AppPath, nil, "mvn", "-q", "-Dmaven.repo.local="+repo, "package"); err != nil {
			return nil, err
		}
		touch(app.EnvPath)
	}
	return []string{"MAVEN_REPO=" + repo}, nil
}

type gradleProvider struct{ detector.BaseProvider }

func (p *gradleProvider) Matches(ctx context.Context, app detector.AppContext) (bool, error) {
	return detector.HasFile(app.AppPath, "build.gradle") || detector.HasFile(app.AppPath, "build.gradle.kts"), nil
}

func (p *gradleProvider) RequiredBinaries() []string { return []string{"gradle"} }

func (p *gradleProvider) Build(ctx context.Context, app detector.AppContext) ([]string, error) {
	manifest := filepath.Join(app.AppPath, "build.gradle")
	cache := filepath.Join(app.EnvPath, "gradle-cache")
	if detector.NewerThan(manifest, app.EnvPath) {
		if err := buildutil.Run(ctx, app.AppPath, nil, "gradle", "--project-cache-dir", cache, "build", "-x", "test"); err != nil {
			return nil, err
		}
		touch(app.EnvPath)
	}
	return []string{"GRADLE_USER_HOME=" + cache}, nil
}

func touch(dir string) {
	now := time.Now()
	os.MkdirAll(dir, 0755)
	_ = os.Chtimes(dir, now, now)
}
