// Package texttrace is a span exporter for otel that writes one console line per span
package texttrace

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var _ trace.SpanExporter = &Exporter{}

type Option func(e *Exporter)

// WithoutTimestamps drops the wall clock and duration from each line.
func WithoutTimestamps() Option {
	return func(e *Exporter) {
		e.timestamps = false
	}
}

// WithoutColour disables the ansi colour codes.
func WithoutColour() Option {
	return func(e *Exporter) {
		e.colour = false
	}
}

// New creates an Exporter with the passed options.
func New(w io.Writer, opts ...Option) (*Exporter, error) {
	e := &Exporter{
		w:          w,
		timestamps: true,
		colour:     true,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Exporter is an implementation of trace.SpanExporter that writes spans as text lines.
type Exporter struct {
	timestamps bool
	colour     bool

	mu      sync.Mutex
	w       io.Writer
	stopped bool
}

// ExportSpans writes one line per span.
func (e *Exporter) ExportSpans(_ context.Context, spans []trace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || len(spans) == 0 {
		return nil
	}

	for _, stub := range tracetest.SpanStubsFromReadOnlySpans(spans) {
		stub := stub
		if _, err := e.w.Write(e.format(&stub)); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown is called to stop the exporter, it performs no other action.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

func (e *Exporter) format(ev *tracetest.SpanStub) []byte {
	buf := new(bytes.Buffer)
	if e.timestamps {
		_, _ = fmt.Fprintf(buf, "%s %s %.3fms ",
			ev.EndTime.Format("15:04:05"),
			e.applyColour(formatTraceID(ev.SpanContext.TraceID().String())),
			float64(ev.EndTime.Sub(ev.StartTime).Microseconds())/1000,
		)
	}
	buf.WriteString(e.applyColour(ev.Name))

	data := map[string]string{}
	keys := make([]string, 0, len(ev.Attributes))
	for _, a := range ev.Attributes {
		k := string(a.Key)
		if e.exclude(k) {
			continue
		}
		if _, seen := data[k]; !seen {
			keys = append(keys, k)
		}
		data[k] = a.Value.Emit()
	}
	sort.Strings(keys)

	for _, k := range keys {
		label := k
		if k == "error" && e.colour {
			label = errorHighlight(k)
		}
		_, _ = fmt.Fprintf(buf, " %s=%s", label, data[k])
	}
	buf.WriteString("\n")
	return buf.Bytes()
}

func (e *Exporter) exclude(k string) bool {
	switch k {
	case "service.name", "service.version":
		return true
	}
	return strings.HasPrefix(k, "meta.")
}

func (e *Exporter) applyColour(value string) string {
	if !e.colour {
		return value
	}

	i := crc32.Checksum([]byte(value), crc32.IEEETable) % uint32(len(colours))
	return fmt.Sprintf("\033[1;38;5;%dm%s\033[0m", colours[i], value)
}

func errorHighlight(s string) string {
	return fmt.Sprintf("\033[1;37;41m%s\033[0m", s)
}

// colours is a selection of ansi colour codes that look ok against black
var colours = []uint8{
	9, 10, 11, 12, 13, 14, 33, 39, 45, 51, 69, 75, 81, 87, 105, 111, 117, 123, 141, 147, 153, 159,
	171, 177, 183, 189, 207, 213, 219, 225, 208, 214, 220, 226,
}

func formatTraceID(raw string) string {
	return raw[len(raw)-5:]
}
