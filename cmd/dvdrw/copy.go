package main

import (
	"fmt"

	"github.com/dvd-rw/dvdrw/cassette"
	"github.com/dvd-rw/dvdrw/o11y"
	"github.com/dvd-rw/dvdrw/storage"
)

type copyCmd struct {
	Source      string `arg:"" help:"Cassette to read"`
	Destination string `arg:"" help:"Where to write the copy"`
	Compress    bool   `help:"zstd compress the output"`
}

func (c *copyCmd) Run(a *app) (err error) {
	ctx, span := a.span("copy")
	defer o11y.End(span, &err)
	span.AddField("source", c.Source)
	span.AddField("destination", c.Destination)

	entries, err := a.load(ctx, c.Source)
	if err != nil {
		return err
	}
	out := cassette.NewReplayOnly(cassette.Options{}, entries)
	if err := a.save(ctx, c.Destination, storage.Codec{Compress: c.Compress}, out); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "copied %d interactions to %s\n", len(entries), c.Destination)
	return nil
}
