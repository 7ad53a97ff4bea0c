package matchdomain

import "fmt"

// Side is one of the two competitors in a head-to-head match.
type Side int

const (
	SideNone Side = 0
	SideOne  Side = 1
	SideTwo  Side = 2
)

func (s Side) Valid() bool { return s == SideOne || s == SideTwo }

// Other returns the opposing side.
func (s Side) Other() Side {
	switch s {
	case SideOne:
		return SideTwo
	case SideTwo:
		return SideOne
	default:
		return SideNone
	}
}

func (s Side) String() string {
	if !s.Valid() {
		return "none"
	}
	return fmt.Sprintf("side%d", int(s))
}

// SideSet is the set of sides a submitter may report for.
type SideSet uint8

const (
	SideSetNone SideSet = 0
	SideSetOne  SideSet = 1 << 0
	SideSetTwo  SideSet = 1 << 1
	SideSetBoth         = SideSetOne | SideSetTwo
)

// SideSetOf returns the set holding only s.
func SideSetOf(s Side) SideSet {
	switch s {
	case SideOne:
		return SideSetOne
	case SideTwo:
		return SideSetTwo
	default:
		return SideSetNone
	}
}

func (ss SideSet) Allows(s Side) bool {
	return s.Valid() && ss&SideSetOf(s) != 0
}

// Only returns the single side in the set, or SideNone when it holds zero or two.
func (ss SideSet) Only() Side {
	switch ss {
	case SideSetOne:
		return SideOne
	case SideSetTwo:
		return SideTwo
	default:
		return SideNone
	}
}
