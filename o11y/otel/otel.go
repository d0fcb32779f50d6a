// Package otel contains an o11y.Provider backed by the open telemetry SDK. Spans are
// exported as text lines, which is what tests and the dvdrw command want to see.
package otel

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/dvd-rw/dvdrw/o11y"
	"github.com/dvd-rw/dvdrw/o11y/otel/texttrace"
)

type Config struct {
	Service string
	Version string

	// Writer receives the exported spans, it defaults to stdout.
	Writer io.Writer
	// Test exports spans synchronously, without colour or timestamps, so output is
	// deterministic and never lost at the end of a test binary.
	Test bool
	// Disabled drops all spans. Used by the cli unless debug output was requested.
	Disabled bool
}

type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer

	mu     sync.RWMutex
	global []attribute.KeyValue
}

func New(conf Config) (*Provider, error) {
	w := conf.Writer
	if w == nil {
		w = os.Stdout
	}
	if conf.Disabled {
		w = io.Discard
	}

	var opts []texttrace.Option
	if conf.Test {
		opts = append(opts, texttrace.WithoutTimestamps(), texttrace.WithoutColour())
	}
	exporter, err := texttrace.New(w, opts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", conf.Service),
		attribute.String("service.version", conf.Version),
	)

	p := &Provider{}
	var processor sdktrace.SpanProcessor
	if conf.Test {
		processor = sdktrace.NewSimpleSpanProcessor(exporter)
	} else {
		processor = sdktrace.NewBatchSpanProcessor(exporter)
	}
	p.tp = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(globalFieldsProcessor{p: p}),
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	)
	p.tracer = p.tp.Tracer("github.com/dvd-rw/dvdrw")
	return p, nil
}

var _ o11y.Provider = (*Provider)(nil)

type spanCtxKey struct{}

func (p *Provider) AddGlobalField(key string, val interface{}) {
	mustValidateKey(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.global = append(p.global, attr(key, val))
}

func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, o11y.Span) {
	ctx, s := p.tracer.Start(ctx, name)
	sp := &span{span: s}
	return context.WithValue(ctx, spanCtxKey{}, sp), sp
}

// GetSpan returns the active span in the given context. It will return nil if there is no span available.
func (p *Provider) GetSpan(ctx context.Context) o11y.Span {
	if s, ok := ctx.Value(spanCtxKey{}).(*span); ok {
		return s
	}
	return nil
}

func (p *Provider) AddField(ctx context.Context, key string, val interface{}) {
	if s := p.GetSpan(ctx); s != nil {
		s.AddField(key, val)
	}
}

// Log emits a zero duration span carrying the fields.
func (p *Provider) Log(ctx context.Context, name string, fields ...o11y.Pair) {
	_, s := p.StartSpan(ctx, name)
	for _, f := range fields {
		s.AddField(f.Key, f.Value)
	}
	s.End()
}

func (p *Provider) Close(ctx context.Context) {
	_ = p.tp.Shutdown(ctx)
}

func (p *Provider) globals() []attribute.KeyValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]attribute.KeyValue(nil), p.global...)
}

type span struct {
	span trace.Span
}

func (s *span) AddField(key string, val interface{}) {
	s.AddRawField("app."+key, val)
}

func (s *span) AddRawField(key string, val interface{}) {
	mustValidateKey(key)
	s.span.SetAttributes(attr(key, val))
}

func (s *span) End() {
	s.span.End()
}

// globalFieldsProcessor stamps the provider's global fields on every span as it starts.
type globalFieldsProcessor struct {
	p *Provider
}

func (g globalFieldsProcessor) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	s.SetAttributes(g.p.globals()...)
}

func (g globalFieldsProcessor) OnEnd(sdktrace.ReadOnlySpan)      {}
func (g globalFieldsProcessor) Shutdown(context.Context) error   { return nil }
func (g globalFieldsProcessor) ForceFlush(context.Context) error { return nil }

func mustValidateKey(key string) {
	if strings.Contains(key, "-") {
		panic(fmt.Errorf("key %q cannot contain '-'", key))
	}
}
