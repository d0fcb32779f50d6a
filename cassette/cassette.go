package cassette

import (
	"sync"

	"github.com/google/uuid"
)

type Mode int

const (
	// ModeWritable cassettes perform live calls and record their outcomes.
	ModeWritable Mode = iota
	// ModeReplayOnly cassettes were loaded from storage and only replay.
	ModeReplayOnly
)

func (m Mode) String() string {
	if m == ModeReplayOnly {
		return "replay-only"
	}
	return "writable"
}

// Matcher is an extra predicate a candidate must satisfy on top of fingerprint equality.
type Matcher func(recorded, incoming Request) bool

type Options struct {
	// MatchOn lists the fields making up the fingerprint. DefaultMatchFields when nil. A
	// non-nil empty list makes every entry a candidate, leaving Matchers and recording
	// order to decide.
	MatchOn []MatchField
	// Matchers must all hold for a candidate to match.
	Matchers []Matcher
	// FilterHeaders names headers, compared case-insensitively, that are stripped before
	// recording and before lookup.
	FilterHeaders []string

	// BeforeRecordRequest may rewrite a request before it is stored and before it is
	// looked up. Returning false marks the request as not recordable.
	BeforeRecordRequest func(Request) (Request, bool)
	// BeforeRecordResponse may rewrite a response before it is stored. It is given a copy.
	BeforeRecordResponse func(*Response) *Response
}

// Stats counts what happened to a cassette since it was created or loaded.
type Stats struct {
	Loaded        int
	Recorded      int
	Replayed      int
	Missed        int
	PassedThrough int
}

// Cassette is a log of recorded interactions and the index used to replay them.
// It is safe for concurrent use.
type Cassette struct {
	id   string
	opts Options
	mode Mode

	mu      sync.Mutex
	entries []*Entry
	index   *index
	dirty   bool
	stats   Stats
}

// New returns an empty writable cassette.
func New(opts Options) *Cassette {
	if opts.MatchOn == nil {
		opts.MatchOn = DefaultMatchFields
	}
	return &Cassette{
		id:    uuid.NewString(),
		opts:  opts,
		mode:  ModeWritable,
		index: newIndex(opts.MatchOn),
	}
}

// NewReplayOnly returns a replay-only cassette holding the given entries, as loaded from
// storage. Entries are renumbered by position and the index is rebuilt.
func NewReplayOnly(opts Options, recorded []Entry) *Cassette {
	c := New(opts)
	c.mode = ModeReplayOnly
	c.entries = make([]*Entry, len(recorded))
	for i, e := range recorded {
		c.entries[i] = &Entry{Seq: i, Request: e.Request, Outcome: e.Outcome}
	}
	c.index.rebuild(c.entries)
	c.stats.Loaded = len(recorded)
	return c
}

func (c *Cassette) ID() string       { return c.id }
func (c *Cassette) Mode() Mode       { return c.mode }
func (c *Cassette) ReplayOnly() bool { return c.mode == ModeReplayOnly }

// MatchOn returns the fields the cassette fingerprints requests with.
func (c *Cassette) MatchOn() []MatchField {
	return append([]MatchField{}, c.opts.MatchOn...)
}

// Record stores the outcome of a live call.
func (c *Cassette) Record(req Request, out Outcome) error {
	if c.mode == ModeReplayOnly {
		return ErrWriteOnReplayOnly
	}
	prepared, ok := c.prepare(req)
	if !ok {
		c.notePassThrough()
		return ErrNotRecordable
	}
	c.append(prepared, out)
	return nil
}

// Resolve returns the outcome of the earliest unreplayed entry matching req. Each entry
// is replayed at most once; a miss returns a *NoMatchError.
func (c *Cassette) Resolve(req Request) (Outcome, error) {
	prepared, ok := c.prepare(req)
	if !ok {
		c.notePassThrough()
		return nil, ErrNotRecordable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	matched := false
	for _, e := range c.index.candidates(prepared) {
		if !c.matches(e.Request, prepared) {
			continue
		}
		matched = true
		if c.index.consume(e.Seq) {
			c.stats.Replayed++
			return cloneOutcome(e.Outcome), nil
		}
	}
	c.stats.Missed++
	return nil, &NoMatchError{Request: prepared, Consumed: matched}
}

// Entries returns a copy of the recorded entries in sequence order.
func (c *Cassette) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = Entry{Seq: e.Seq, Request: e.Request, Outcome: cloneOutcome(e.Outcome)}
	}
	return out
}

func (c *Cassette) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Dirty reports whether entries were recorded since the cassette was created or last saved.
func (c *Cassette) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// MarkSaved clears the dirty flag.
func (c *Cassette) MarkSaved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}

// Consumed reports whether the entry with the given sequence index has been replayed.
func (c *Cassette) Consumed(seq int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.isConsumed(seq)
}

// Rebuild rebuilds the index from the entry log, which also forgets every replay.
func (c *Cassette) Rebuild() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.rebuild(c.entries)
}

func (c *Cassette) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// prepare applies the header filter and then the request hook.
func (c *Cassette) prepare(req Request) (Request, bool) {
	if len(c.opts.FilterHeaders) > 0 {
		req = req.WithoutHeaders(c.opts.FilterHeaders...)
	}
	if c.opts.BeforeRecordRequest == nil {
		return req, true
	}
	return c.opts.BeforeRecordRequest(req)
}

func (c *Cassette) matches(recorded, incoming Request) bool {
	for _, m := range c.opts.Matchers {
		if !m(recorded, incoming) {
			return false
		}
	}
	return true
}

// append stores an already prepared request.
func (c *Cassette) append(req Request, out Outcome) {
	switch o := out.(type) {
	case *Response:
		resp := o.clone()
		if c.opts.BeforeRecordResponse != nil {
			if r := c.opts.BeforeRecordResponse(resp); r != nil {
				resp = r
			}
		}
		out = resp
	case *Failure:
		out = cloneOutcome(o)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e := &Entry{Seq: len(c.entries), Request: req, Outcome: out}
	c.entries = append(c.entries, e)
	c.index.insert(e)
	c.dirty = true
	c.stats.Recorded++
}

func (c *Cassette) notePassThrough() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.PassedThrough++
}
