// Package secret holds credentials so they never end up in output by accident.
package secret

// String is a sensitive string. Formatting, JSON and text marshalling all redact it;
// only Raw gives the value back.
type String string

const redacted = "REDACTED"

func (s String) String() string {
	return redacted
}

func (s String) GoString() string {
	return redacted
}

// Raw returns the sensitive value.
func (s String) Raw() string {
	return string(s)
}

// Empty reports whether no secret was given.
func (s String) Empty() bool {
	return s == ""
}

func (s String) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

func (s String) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}
