// Package o11y sets up the o11y provider for commands.
package o11y

import (
	"context"
	"io"
	"os"

	"github.com/dvd-rw/dvdrw/o11y"
	"github.com/dvd-rw/dvdrw/o11y/otel"
)

type Config struct {
	Service string
	Version string

	// Optional
	Mode string
	// Debug prints spans, which are otherwise dropped.
	Debug bool
	// Writer receives debug output, it defaults to stderr.
	Writer io.Writer
	// Test makes the output deterministic.
	Test bool
}

// Setup returns a context carrying the provider, and the cleanup function that flushes it.
func Setup(ctx context.Context, o Config) (context.Context, func(context.Context), error) {
	w := o.Writer
	if w == nil {
		w = os.Stderr
	}

	p, err := otel.New(otel.Config{
		Service:  o.Service,
		Version:  o.Version,
		Writer:   w,
		Test:     o.Test,
		Disabled: !o.Debug,
	})
	if err != nil {
		return nil, nil, err
	}

	p.AddGlobalField("version", o.Version)
	if o.Mode != "" {
		p.AddGlobalField("service.mode", o.Mode)
	}

	return o11y.WithProvider(ctx, p), p.Close, nil
}
