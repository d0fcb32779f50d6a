// Package testcontext provides a context with o11y wired in, so tests print the spans
// they produce.
package testcontext

import (
	"context"
	"os"

	"github.com/dvd-rw/dvdrw/o11y"
	"github.com/dvd-rw/dvdrw/o11y/otel"
)

// ctx is a package level singleton so every test in a binary shares one provider.
var ctx = newContext()

// Background returns a context for use in tests which contains a working o11y, so you get logs.
func Background() context.Context {
	return ctx
}

func newContext() context.Context {
	p, err := otel.New(otel.Config{
		Service: "test-service",
		Version: "dev",
		Writer:  os.Stderr,
		Test:    true,
	})
	if err != nil {
		return context.Background()
	}
	p.AddGlobalField("service.mode", "test")
	return o11y.WithProvider(context.Background(), p)
}
