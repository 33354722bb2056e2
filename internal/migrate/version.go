// Package migrate applies versioned upgrade steps in ascending version
// order, persisting progress after every step.
package migrate

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionFormatError is returned for a version string that is not a
// dot-delimited sequence of non-negative integers.
type VersionFormatError struct {
	Version string
	Segment string
}

func (e *VersionFormatError) Error() string {
	return fmt.Sprintf("invalid version %q: segment %q is not a non-negative integer", e.Version, e.Segment)
}

// Version is a parsed dotted-numeric version.
type Version []int

// ParseVersion parses "1.10.2" into [1 10 2]. The empty string parses as
// the zero version.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{0}, nil
	}
	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, &VersionFormatError{Version: s, Segment: p}
		}
		v[i] = n
	}
	return v, nil
}

// Compare returns -1, 0 or 1 as a is older than, equal to or newer than b.
// Segments are compared numerically left to right; a missing segment
// counts as zero, so "1.2" equals "1.2.0".
func (a Version) Compare(b Version) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		x, y := segment(a, i), segment(b, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

func segment(v Version, i int) int {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// Compare parses and compares two version strings.
func Compare(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}
