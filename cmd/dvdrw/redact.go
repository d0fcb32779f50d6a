package main

import (
	"fmt"

	"github.com/dvd-rw/dvdrw/cassette"
	"github.com/dvd-rw/dvdrw/o11y"
	"github.com/dvd-rw/dvdrw/storage"
)

type redactCmd struct {
	Source      string   `arg:"" help:"Cassette to read"`
	Destination string   `arg:"" help:"Where to write the redacted cassette"`
	Header      []string `name:"header" help:"Request and response headers to remove"`
	JSONPath    []string `name:"json-path" help:"gjson paths removed from JSON response bodies"`
	Mask        string   `help:"Replace JSON values with this instead of removing them"`
	Compress    bool     `help:"zstd compress the output"`
}

func (c *redactCmd) Run(a *app) (err error) {
	ctx, span := a.span("redact")
	defer o11y.End(span, &err)
	span.AddField("source", c.Source)
	span.AddField("destination", c.Destination)

	entries, err := a.load(ctx, c.Source)
	if err != nil {
		return err
	}

	body := cassette.RedactJSON(c.JSONPath...)
	if c.Mask != "" {
		body = cassette.MaskJSON(c.Mask, c.JSONPath...)
	}
	out := cassette.New(cassette.Options{
		FilterHeaders:        c.Header,
		BeforeRecordResponse: cassette.ChainResponseHooks(body, cassette.RedactResponseHeaders(c.Header...)),
	})
	for _, e := range entries {
		if err := out.Record(e.Request, e.Outcome); err != nil {
			return fmt.Errorf("interaction %d: %w", e.Seq, err)
		}
	}

	if err := a.save(ctx, c.Destination, storage.Codec{Compress: c.Compress}, out); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "redacted %d interactions into %s\n", out.Len(), c.Destination)
	return nil
}
