package cassette

// Entry is one recorded interaction. Seq is its position in recording order.
type Entry struct {
	Seq     int
	Request Request
	Outcome Outcome
}

// index buckets entries by fingerprint and tracks how often each entry has been replayed.
type index struct {
	fields   []MatchField
	buckets  map[Key][]*Entry
	consumed map[int]int
}

func newIndex(fields []MatchField) *index {
	return &index{
		fields:   fields,
		buckets:  map[Key][]*Entry{},
		consumed: map[int]int{},
	}
}

func (ix *index) insert(e *Entry) {
	k := Fingerprint(e.Request, ix.fields)
	ix.buckets[k] = append(ix.buckets[k], e)
}

// candidates returns the bucket for r in recording order.
func (ix *index) candidates(r Request) []*Entry {
	return ix.buckets[Fingerprint(r, ix.fields)]
}

// rebuild resets the buckets and every consumption counter, then reinserts entries.
func (ix *index) rebuild(entries []*Entry) {
	ix.buckets = make(map[Key][]*Entry, len(entries))
	ix.consumed = map[int]int{}
	for _, e := range entries {
		ix.insert(e)
	}
}

// consume marks seq as replayed. It returns false if it already was.
func (ix *index) consume(seq int) bool {
	if ix.consumed[seq] > 0 {
		return false
	}
	ix.consumed[seq]++
	return true
}

func (ix *index) isConsumed(seq int) bool {
	return ix.consumed[seq] > 0
}
