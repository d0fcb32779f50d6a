/*
Package closer keeps errors from deferred Close calls.
*/
package closer

import (
	"errors"
	"io"
)

// ErrorHandler closes c and records its error in *in. A close error never hides an error
// already in *in; when both fail they are joined.
func ErrorHandler(c io.Closer, in *error) {
	cerr := c.Close()
	switch {
	case cerr == nil:
	case *in == nil:
		*in = cerr
	default:
		*in = errors.Join(*in, cerr)
	}
}

// Func is ErrorHandler for a plain close function.
func Func(close func() error, in *error) {
	ErrorHandler(closerFunc(close), in)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
