package main

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/dvd-rw/dvdrw/cassette"
	"github.com/dvd-rw/dvdrw/o11y"
)

type inspectCmd struct {
	Locations   []string `arg:"" name:"location" help:"Cassettes to inspect"`
	Field       []string `name:"field" short:"f" help:"gjson path to print from JSON response bodies"`
	Concurrency int      `default:"4" help:"Number of cassettes loaded at once"`
}

func (c *inspectCmd) Run(a *app) (err error) {
	ctx, span := a.span("inspect")
	defer o11y.End(span, &err)
	span.AddField("locations", len(c.Locations))

	reports := make([]bytes.Buffer, len(c.Locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Concurrency, 1))
	for i, loc := range c.Locations {
		g.Go(func() error {
			entries, err := a.load(gctx, loc)
			if err != nil {
				return fmt.Errorf("%s: %w", loc, err)
			}
			c.report(&reports[i], loc, entries)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range reports {
		if _, err := reports[i].WriteTo(a.out); err != nil {
			return err
		}
	}
	return nil
}

func (c *inspectCmd) report(w *bytes.Buffer, location string, entries []cassette.Entry) {
	fmt.Fprintf(w, "== %s (%d interactions)\n", location, len(entries))
	for _, e := range entries {
		switch o := e.Outcome.(type) {
		case *cassette.Response:
			fmt.Fprintf(w, "%d %s -> %d (%d bytes)\n", e.Seq, e.Request, o.Status, len(o.Body))
			for _, path := range c.Field {
				if v := gjson.GetBytes(o.Body, path); v.Exists() {
					fmt.Fprintf(w, "    %s=%s\n", path, v.Raw)
				}
			}
		case *cassette.Failure:
			fmt.Fprintf(w, "%d %s -> failure %s: %s\n", e.Seq, e.Request, o.Kind, o.Message)
		}
	}
}
