package version

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Version is a parsed dotted version with an optional prerelease tag.
// The zero value is not a valid version; use Parse.
type Version struct {
	parts      []int
	prerelease string
	raw        string
}

type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse version %q: %s", e.Text, e.Reason)
}

// Parse splits text on the first "-" into a numeric core and a prerelease
// tag. Every dot-separated core component must be a non-negative integer.
func Parse(text string) (Version, error) {
	if text == "" {
		return Version{}, &ParseError{Text: text, Reason: "empty version"}
	}

	core, pre, hasPre := strings.Cut(text, "-")
	if hasPre && pre == "" {
		return Version{}, &ParseError{Text: text, Reason: "empty prerelease tag"}
	}

	fields := strings.Split(core, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			return Version{}, &ParseError{Text: text, Reason: "empty component"}
		}
		for _, r := range f {
			if r < '0' || r > '9' {
				return Version{}, &ParseError{Text: text, Reason: fmt.Sprintf("component %q is not a non-negative integer", f)}
			}
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return Version{}, &ParseError{Text: text, Reason: fmt.Sprintf("component %q out of range", f)}
		}
		parts = append(parts, n)
	}

	return Version{parts: parts, prerelease: pre, raw: text}, nil
}

func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// Parts returns a copy of the numeric components.
func (v Version) Parts() []int {
	out := make([]int, len(v.parts))
	copy(out, v.parts)
	return out
}

func (v Version) Prerelease() string { return v.prerelease }

func (v Version) String() string { return v.raw }

// Compare returns -1, 0 or 1. Missing trailing components count as 0, and a
// release orders after any prerelease of the same numeric version.
func Compare(a, b Version) int {
	n := len(a.parts)
	if len(b.parts) > n {
		n = len(b.parts)
	}
	for i := 0; i < n; i++ {
		x, y := component(a.parts, i), component(b.parts, i)
		if x < y {
			return -1
		}
		if x > y {
			return 1
		}
	}

	switch {
	case a.prerelease == b.prerelease:
		return 0
	case a.prerelease == "":
		return 1
	case b.prerelease == "":
		return -1
	default:
		return strings.Compare(a.prerelease, b.prerelease)
	}
}

func component(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

// CompareStrings parses both sides and compares them. If either side does not
// parse it logs the degradation and falls back to ordinal string comparison.
func CompareStrings(a, b string) int {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	if errA != nil || errB != nil {
		err := errA
		if err == nil {
			err = errB
		}
		slog.Warn("falling back to string comparison of versions", "left", a, "right", b, "error", err)
		return strings.Compare(a, b)
	}
	return Compare(va, vb)
}
