package ytd

import "strings"

// Arg represents a single downloader option.
//
// There are two kinds of Arg:
//   - a flag with no input, e.g. "--add-metadata"
//   - a flag carrying a value, e.g. "--cookies /path/to/cookies.txt"
type Arg struct {
	name     string
	value    string
	hasValue bool
}

// NewArg creates a flag-only argument
func NewArg(name string) Arg {
	return Arg{name: name}
}

// NewArgWithValue creates an argument that carries a value
func NewArgWithValue(name, value string) Arg {
	return Arg{name: name, value: value, hasValue: true}
}

// ParseArg parses the "name value" form produced by Arg.String.
// Everything after the first run of whitespace is the value.
//
// The text form is lossy: a name containing whitespace cannot be expressed,
// surrounding whitespace of the value is dropped, and an empty value reads
// back as a flag-only Arg. Build those with NewArgWithValue instead.
func ParseArg(s string) Arg {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return NewArg(s)
	}
	return NewArgWithValue(s[:idx], strings.TrimSpace(s[idx:]))
}

// Name returns the flag or bare token
func (a Arg) Name() string {
	return a.name
}

// Value returns the attached value and whether one is set
func (a Arg) Value() (string, bool) {
	return a.value, a.hasValue
}

// Tokens expands the argument into command line tokens
func (a Arg) Tokens() []string {
	if a.hasValue {
		return []string{a.name, a.value}
	}
	return []string{a.name}
}

func (a Arg) String() string {
	if a.hasValue {
		return a.name + " " + a.value
	}
	return a.name
}
