package main

import (
	"context"
	"fmt"

	"dagger/verity/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts returns the common GolangcilintOpts used by both CheckLint and FixLint.
// It layers golangci-lint on top of goContainer() so the sqlite dev headers,
// CGO, and Go caches are already in place.
func (v *Verity) lintOpts() dagger.GolangcilintOpts {
	base := v.goContainer().
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  v.Source.File(".golangci.yml"),
	}
}

// CheckLint runs golangci-lint against the verity source code without applying fixes.
func (v *Verity) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(v.Source, v.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint against the verity source code with --fix, applying
// automatic fixes where possible, and returns the modified source directory.
func (v *Verity) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(v.Source, v.lintOpts()).Lint()
}
