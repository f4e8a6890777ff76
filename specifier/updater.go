package specifier

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind is the syntactic form a specifier occurrence was found in.
type Kind int

const (
	KindImport  Kind = iota // static import ... from "x"
	KindExport              // export ... from "x"
	KindDynamic             // import("x")
	KindRequire             // require("x")
)

func (k Kind) String() string {
	switch k {
	case KindExport:
		return "export"
	case KindDynamic:
		return "dynamic-import"
	case KindRequire:
		return "require"
	default:
		return "import"
	}
}

// Occurrence is one discovered specifier: its literal value, syntactic form,
// and byte range of the unquoted literal in the source.
type Occurrence struct {
	Value string
	Kind  Kind
	Start int
	End   int
}

// HandlerFunc is the unified matching contract every updater shape collapses
// to: return the replacement and true, or false for "no change".
type HandlerFunc func(Occurrence) (string, bool)

// Updater is one of the three configuration shapes: a HandlerFunc, an
// ordered RegexMap, or an exact-match LiteralMap. Normalize resolves the
// shape once at setup so per-occurrence matching never branches on it.
type Updater interface {
	Normalize() (HandlerFunc, error)
}

// Normalize on a HandlerFunc is the identity: it already satisfies the
// contract.
func (h HandlerFunc) Normalize() (HandlerFunc, error) {
	if h == nil {
		return NoChange, nil
	}
	return h, nil
}

// NoChange is the matcher for an absent configuration: every specifier is
// left as-is.
func NoChange(Occurrence) (string, bool) { return "", false }

var ErrBadPattern = errors.New("invalid specifier pattern")

// Replacement is one pattern -> template pair of a RegexMap. Templates use
// $1-style capture references.
type Replacement struct {
	Pattern  string
	Template string
}

// RegexMap is an ordered table of pattern -> replacement-template pairs.
// Matching tries patterns in declaration order; the first that matches wins.
type RegexMap []Replacement

// Normalize compiles every pattern eagerly. A malformed pattern is a
// configuration error surfaced here, never at rewrite time.
func (m RegexMap) Normalize() (HandlerFunc, error) {
	if len(m) == 0 {
		return NoChange, nil
	}
	compiled := make([]*regexp.Regexp, len(m))
	for i, r := range m {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, r.Pattern, err)
		}
		compiled[i] = re
	}
	return func(o Occurrence) (string, bool) {
		for i, re := range compiled {
			if re.MatchString(o.Value) {
				return re.ReplaceAllString(o.Value, m[i].Template), true
			}
		}
		return "", false
	}, nil
}

// LiteralMap substitutes exact-match specifier literals. Value equality
// only, no pattern matching.
type LiteralMap map[string]string

func (m LiteralMap) Normalize() (HandlerFunc, error) {
	if len(m) == 0 {
		return NoChange, nil
	}
	return func(o Occurrence) (string, bool) {
		v, ok := m[o.Value]
		return v, ok
	}, nil
}
