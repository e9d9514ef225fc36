package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/verity/internal/dagger"
)

// Build and return directory of go binaries
//
// The sqlite driver links against libsqlite3, so binaries are built natively
// per linux platform rather than cross-compiled.
func (v *Verity) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	platforms := []dagger.Platform{"linux/amd64", "linux/arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	for _, platform := range platforms {
		path := fmt.Sprintf("%s/", platform)

		build := dag.Container(dagger.ContainerOpts{Platform: platform}).
			From("golang:1.25-bookworm").
			WithExec([]string{"apt-get", "update"}).
			WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
			WithEnvVariable("CGO_ENABLED", "1").
			WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod-"+strings.ReplaceAll(string(platform), "/", "-"))).
			WithDirectory("/src", v.Source).
			WithWorkdir("/src").
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/verity"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (v *Verity) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/verity/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/verity/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/verity/pkg/utils.Buildtime=%s'", buildtime),
	}

	return v.Build(ctx, strings.Join(ldflags, " "))
}
