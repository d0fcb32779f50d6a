// Package kongtest renders kong help output so command line surfaces can be tested.
package kongtest

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

// Help returns the help text kong prints for cli, optionally for a sub command.
func Help(t testing.TB, cli interface{}, command ...string) string {
	t.Helper()
	w := bytes.NewBuffer(nil)
	rc := -1
	app, err := kong.New(cli,
		kong.Name("test-app"),
		kong.Writers(w, w),
		kong.Exit(func(i int) {
			rc = i
		}),
	)
	assert.NilError(t, err)

	_, err = app.Parse(append(command, "--help"))
	assert.Check(t, err)
	assert.Check(t, cmp.Equal(rc, 0))

	return w.String()
}
