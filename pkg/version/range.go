package version

import (
	"fmt"
	"strings"
)

type Op string

const (
	OpGreaterEqual Op = ">="
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpLess         Op = "<"
	OpEqual        Op = "="
)

// Two-character operators come first so ">" never claims the start of ">=".
var operators = []Op{OpGreaterEqual, OpLessEqual, OpGreater, OpLess, OpEqual}

type Constraint struct {
	Op      Op
	Version Version
}

func (c Constraint) Check(v Version) bool {
	cmp := Compare(v, c.Version)
	switch c.Op {
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpEqual:
		return cmp == 0
	}
	return false
}

func (c Constraint) String() string {
	return string(c.Op) + c.Version.String()
}

// Range is a conjunction of constraints. An empty Range contains every version.
type Range []Constraint

// ParseRange parses a comma-separated list of constraints such as
// ">= 4.0.0, < 4.17.21".
func ParseRange(expr string) (Range, error) {
	if strings.TrimSpace(expr) == "" {
		return Range{}, nil
	}

	var r Range
	for _, atom := range strings.Split(expr, ",") {
		atom = strings.TrimSpace(atom)
		c, err := parseConstraint(atom)
		if err != nil {
			return nil, fmt.Errorf("parse range %q: %w", expr, err)
		}
		r = append(r, c)
	}
	return r, nil
}

func parseConstraint(atom string) (Constraint, error) {
	for _, op := range operators {
		if rest, ok := strings.CutPrefix(atom, string(op)); ok {
			v, err := Parse(strings.TrimSpace(rest))
			if err != nil {
				return Constraint{}, err
			}
			return Constraint{Op: op, Version: v}, nil
		}
	}
	return Constraint{}, &ParseError{Text: atom, Reason: "missing comparison operator"}
}

func (r Range) Contains(v Version) bool {
	for _, c := range r {
		if !c.Check(v) {
			return false
		}
	}
	return true
}

func (r Range) String() string {
	atoms := make([]string, len(r))
	for i, c := range r {
		atoms[i] = c.String()
	}
	return strings.Join(atoms, ", ")
}

// Satisfies reports whether v lies inside expr. An expression that fails to
// parse is never satisfied.
func Satisfies(v Version, expr string) bool {
	r, err := ParseRange(expr)
	if err != nil {
		return false
	}
	return r.Contains(v)
}
