package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvd-rw/dvdrw/cassette"
	"github.com/dvd-rw/dvdrw/o11y"
)

// Loader loads the cassette at Location and keeps it active on a stack for a scope.
type Loader struct {
	Store    Store
	Location string
	Codec    Codec
	// Options configure the cassette. They are applied to loaded cassettes too, so
	// matching follows the loader rather than whatever the cassette was recorded with.
	Options cassette.Options

	mu       sync.Mutex
	cassette *cassette.Cassette
}

// Load reads the cassette from the store. A missing cassette gives an empty writable one,
// a stored cassette is loaded replay-only.
func (l *Loader) Load(ctx context.Context) (c *cassette.Cassette, err error) {
	ctx, span := o11y.StartSpan(ctx, "storage: load")
	defer o11y.End(span, &err)
	span.AddField("location", l.Location)

	data, err := l.Store.Get(ctx, l.Location)
	switch {
	case errors.Is(err, ErrNotFound):
		c = cassette.New(l.Options)
		span.AddField("mode", c.Mode().String())
	case err != nil:
		return nil, fmt.Errorf("failed to load cassette %q: %w", l.Location, err)
	default:
		entries, err := l.Codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to load cassette %q: %w", l.Location, err)
		}
		c = cassette.NewReplayOnly(l.Options, entries)
		span.AddField("mode", c.Mode().String())
		span.AddField("entries", len(entries))
	}
	span.AddRawField("cassette.id", c.ID())

	l.mu.Lock()
	l.cassette = c
	l.mu.Unlock()
	return c, nil
}

// Cassette returns the most recently loaded cassette, or nil.
func (l *Loader) Cassette() *cassette.Cassette {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cassette
}

// Save writes the loaded cassette if it has unsaved recordings.
func (l *Loader) Save(ctx context.Context) (err error) {
	c := l.Cassette()
	if c == nil || !c.Dirty() {
		return nil
	}

	ctx, span := o11y.StartSpan(ctx, "storage: save")
	defer o11y.End(span, &err)
	span.AddField("location", l.Location)
	span.AddRawField("cassette.id", c.ID())

	data, err := l.Codec.Encode(c)
	if err != nil {
		return fmt.Errorf("failed to encode cassette %q: %w", l.Location, err)
	}
	span.AddField("entries", c.Len())
	if err := l.Store.Put(ctx, l.Location, data); err != nil {
		return fmt.Errorf("failed to save cassette %q: %w", l.Location, err)
	}
	c.MarkSaved()
	return nil
}

// Use loads the cassette and keeps it on top of stack while fn runs. The cassette is
// saved only if fn succeeds and something was recorded, and is popped however fn exits.
func (l *Loader) Use(ctx context.Context, stack *cassette.Stack, fn func(c *cassette.Cassette) error) error {
	c, err := l.Load(ctx)
	if err != nil {
		return err
	}
	return stack.Use(c, func() error {
		if err := fn(c); err != nil {
			return err
		}
		return l.Save(ctx)
	})
}

// Enter pushes the cassette, loading it on first use only. It pairs with Exit, so one
// loader can bracket several scopes while recordings accumulate in the same cassette.
func (l *Loader) Enter(ctx context.Context, stack *cassette.Stack) (*cassette.Cassette, error) {
	c := l.Cassette()
	if c == nil {
		var err error
		if c, err = l.Load(ctx); err != nil {
			return nil, err
		}
	}
	stack.Push(c)
	return c, nil
}

// Exit saves the cassette when dirty and pops it. The pop happens even when the save fails.
func (l *Loader) Exit(ctx context.Context, stack *cassette.Stack) error {
	c := l.Cassette()
	if c == nil {
		return errors.New("exit without enter")
	}
	err := l.Save(ctx)
	if perr := stack.Pop(c); perr != nil {
		return perr
	}
	return err
}
