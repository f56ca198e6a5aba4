package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/relay/internal/dagger"
)

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum. A
// missing go.sum is treated as empty so a fresh checkout reports every
// missing checksum instead of failing on the copy.
//
// +check
func (r *Relay) CheckGoModTidy(ctx context.Context) (string, error) {
	return r.checkClean(ctx,
		"go.mod or go.sum are not tidy: run 'go mod tidy' and commit the changes",
		"touch go.sum && cp go.mod /tmp/go.mod && cp go.sum /tmp/go.sum && "+
			"go mod tidy && diff -u /tmp/go.mod go.mod && diff -u /tmp/go.sum go.sum",
	)
}

// CheckGofmt fails when any Go file outside .dagger is not gofmt'd.
//
// +check
func (r *Relay) CheckGofmt(ctx context.Context) (string, error) {
	return r.checkClean(ctx,
		"unformatted files: run 'gofmt -w' on the files below",
		`out=$(gofmt -l $(find . -name '*.go' -not -path './.dagger/*' -not -path './_*')); `+
			`if [ -n "$out" ]; then echo "$out"; exit 1; fi`,
	)
}

func (r *Relay) checkClean(ctx context.Context, failure, script string) (string, error) {
	out, err := r.goContainer().
		WithExec([]string{"sh", "-c", script}).
		Stdout(ctx)

	var e *dagger.ExecError
	if errors.As(err, &e) {
		return "", fmt.Errorf("%s\n\n%s", failure, e.Stdout)
	} else if err != nil {
		return "", fmt.Errorf("unexpected error: %w", err)
	}

	return fmt.Sprintf("clean: %s", out), nil
}
