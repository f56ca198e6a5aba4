// Relay CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/relay/internal/dagger"
)

// Relay is the main module for the relay CI/CD pipeline
type Relay struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Relay CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", ".relay", "build", "tmp"]
	source *dagger.Directory,
) *Relay {
	return &Relay{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc,
// libsqlite3-dev, CGO enabled, and the project source mounted.
func (r *Relay) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", r.Source)
}

// Test runs the relay unit tests via "go test". The postgres store specs
// run only when postgresDsn is given.
func (r *Relay) Test(
	ctx context.Context,

	// DSN of a scratch PostgreSQL database
	// +optional
	postgresDsn string,
) (string, error) {
	ctr := r.goContainer()
	if postgresDsn != "" {
		ctr = ctr.WithEnvVariable("RELAY_TEST_POSTGRES_DSN", postgresDsn)
	}
	return ctr.
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
