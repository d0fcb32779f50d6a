package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dvd-rw/dvdrw/cassette"
	"github.com/dvd-rw/dvdrw/o11y"
)

var errUnreplayable = errors.New("some interactions cannot be replayed")

type verifyCmd struct {
	Location string   `arg:"" help:"Cassette to verify"`
	MatchOn  []string `name:"match-on" default:"method,scheme,host,path,query" help:"Fields requests are matched on"`
	Filter   []string `name:"filter-header" help:"Headers stripped before matching"`
}

// Run replays every recorded request, in order, against the cassette itself with the
// given matching configuration. Entries that are never replayed fail the verification.
// Entries that only replay correctly because of their recording order are reported as
// ambiguous.
func (c *verifyCmd) Run(a *app) (err error) {
	ctx, span := a.span("verify")
	defer o11y.End(span, &err)
	span.AddField("location", c.Location)

	fields, err := cassette.ParseMatchFields(c.MatchOn)
	if err != nil {
		return err
	}
	entries, err := a.load(ctx, c.Location)
	if err != nil {
		return err
	}

	cas := cassette.NewReplayOnly(cassette.Options{MatchOn: fields, FilterHeaders: c.Filter}, entries)
	firstSeen := map[cassette.Key]cassette.Entry{}
	var ambiguous []string
	for _, e := range entries {
		_, _ = cas.Resolve(e.Request)

		k := cassette.Fingerprint(e.Request.WithoutHeaders(c.Filter...), fields)
		if first, ok := firstSeen[k]; !ok {
			firstSeen[k] = e
		} else if !first.Request.Equal(e.Request) {
			ambiguous = append(ambiguous, fmt.Sprintf("%d %s (matches %d)", e.Seq, e.Request, first.Seq))
		}
	}

	var bad []string
	for _, e := range entries {
		if !cas.Consumed(e.Seq) {
			bad = append(bad, fmt.Sprintf("%d %s", e.Seq, e.Request))
		}
	}
	span.AddField("unreplayable", len(bad))
	span.AddField("ambiguous", len(ambiguous))

	if len(ambiguous) > 0 {
		fmt.Fprintf(a.out, "%s: %d interactions replay by recording order only:\n  %s\n",
			c.Location, len(ambiguous), strings.Join(ambiguous, "\n  "))
	}
	if len(bad) > 0 {
		fmt.Fprintf(a.out, "%s: %d of %d interactions cannot be replayed:\n  %s\n",
			c.Location, len(bad), len(entries), strings.Join(bad, "\n  "))
		return errUnreplayable
	}
	fmt.Fprintf(a.out, "%s: all %d interactions can be replayed\n", c.Location, len(entries))
	return nil
}
