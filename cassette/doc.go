/*
Package cassette records HTTP interactions and replays them deterministically.

A Cassette holds an ordered log of recorded entries, each pairing a Request with the
Outcome it produced (a Response, or a Failure when the transport failed). Entries are
indexed by a Fingerprint built from a configurable list of MatchFields, and every entry
may satisfy at most one replay lookup for the lifetime of the cassette.

Cassettes become active by being pushed onto a Stack. Only the top cassette is consulted
when a request is dispatched:

	stack := cassette.NewStack()
	c := cassette.New(cassette.Options{MatchOn: cassette.DefaultMatchFields})
	err := stack.Use(c, func() error {
		// requests made through a transport bound to stack are recorded into c
		return nil
	})

A writable cassette performs the live call and records the outcome. A replay-only
cassette (one loaded from storage) answers from its entries and fails with
ErrNoMatchingRecording otherwise; it never falls through to the network unless the
BeforeRecordRequest hook declares the request not recordable, in which case the request
is passed through live.
*/
package cassette
