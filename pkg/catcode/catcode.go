// Package catcode implements the arithmetic of the hierarchical
// classification namespace. A catcode is a string of fixed-width 2-character
// segments over the alphabet 0-9a-z; a string prefix of one catcode denotes
// its ancestor, so subtree queries are plain prefix scans.
package catcode

import (
	"fmt"
	"strings"
)

// Alphabet is the segment symbol set, in rank order.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// SegmentWidth is the fixed width of one hierarchy level.
const SegmentWidth = 2

// SlotsPerParent is the number of child slots under any parent (36^2).
const SlotsPerParent = 1296

// ErrSpaceExhausted is returned when a parent already holds all 1296 slots.
var ErrSpaceExhausted = fmt.Errorf("catcode space exhausted")

// Valid reports whether s is a well-formed catcode: non-empty, an even
// number of characters, all from the alphabet.
func Valid(s string) bool {
	if s == "" || len(s)%SegmentWidth != 0 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}

// IsChildOf reports whether catcode is exactly one segment below parent.
// An empty parent matches root-level codes (a single segment).
func IsChildOf(catcode, parent string) bool {
	if !Valid(catcode) {
		return false
	}
	return len(catcode) == len(parent)+SegmentWidth && strings.HasPrefix(catcode, parent)
}

// Rank converts a 2-character segment to its base-36 position.
func Rank(segment string) (int, error) {
	if len(segment) != SegmentWidth {
		return 0, fmt.Errorf("segment %q must be %d characters", segment, SegmentWidth)
	}
	hi := strings.IndexByte(Alphabet, segment[0])
	lo := strings.IndexByte(Alphabet, segment[1])
	if hi < 0 || lo < 0 {
		return 0, fmt.Errorf("segment %q contains characters outside %s", segment, Alphabet)
	}
	return hi*len(Alphabet) + lo, nil
}

// Segment renders a base-36 rank back to its 2-character form.
func Segment(rank int) string {
	return string(Alphabet[rank/len(Alphabet)]) + string(Alphabet[rank%len(Alphabet)])
}

// FirstChild returns the first allocated slot under parent.
// Slot "00" is reserved, allocation starts at "01".
func FirstChild(parent string) string {
	return parent + "01"
}

// NextSegment returns the segment following last, or ErrSpaceExhausted when
// last is the final slot ("zz").
func NextSegment(last string) (string, error) {
	rank, err := Rank(last)
	if err != nil {
		return "", err
	}
	rank++
	if rank >= SlotsPerParent {
		return "", ErrSpaceExhausted
	}
	return Segment(rank), nil
}

// ChildSegment extracts the child-level segment of catcode under parent.
func ChildSegment(catcode, parent string) (string, error) {
	if !IsChildOf(catcode, parent) {
		return "", fmt.Errorf("catcode %q is not a child of %q", catcode, parent)
	}
	return catcode[len(parent):], nil
}
