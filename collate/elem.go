package collate

import (
	"fmt"
	"strings"
)

// Strength selects how many comparison levels take part in ordering.
type Strength uint8

const (
	Primary Strength = iota + 1
	Secondary
	Tertiary
	Quaternary
	Identical
)

// String returns the strength name.
func (s Strength) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Tertiary:
		return "tertiary"
	case Quaternary:
		return "quaternary"
	case Identical:
		return "identical"
	default:
		return fmt.Sprintf("strength(%d)", uint8(s))
	}
}

// Case bits stored in the two low bits of a tertiary weight.
const (
	CaseLower uint16 = 0 // also used for uncased elements
	CaseMixed uint16 = 1
	CaseUpper uint16 = 2

	caseMask uint16 = 0x3
)

// Common weights shared by untailored elements.
const (
	SecondaryCommon uint16 = 0x0100
	TertiaryCommon  uint16 = tertiaryRankCommon << 2

	tertiaryRankCommon uint16 = 0x0100
	tertiaryRankCompat uint16 = 0x0200
	tertiaryRankMax    uint16 = 0x3FFF
)

// Elem is a single collation element.
//
// The high byte of Primary is the lead byte, which tags the reorder group;
// the low 24 bits rank the element inside its group. The two low bits of
// Tertiary carry the case, the remaining bits the tertiary rank. Quaternary
// is zero unless a quaternary relation assigned it. A zero weight is
// ignorable at its level.
type Elem struct {
	Primary    uint32
	Secondary  uint16
	Tertiary   uint16
	Quaternary uint16
	Variable   bool
}

// Case returns the case bits of the element.
func (e Elem) Case() uint16 { return e.Tertiary & caseMask }

// TertiaryRank returns the tertiary weight without case bits.
func (e Elem) TertiaryRank() uint16 { return e.Tertiary >> 2 }

// LeadByte returns the physical lead byte of the primary weight.
func (e Elem) LeadByte() byte { return byte(e.Primary >> 24) }

// Ignorable reports whether the element is ignorable at every level.
func (e Elem) Ignorable() bool {
	return e.Primary == 0 && e.Secondary == 0 && e.Tertiary == 0 && e.Quaternary == 0
}

// Level returns the coarsest level at which the element has a non-zero
// weight. A completely ignorable element reports Identical.
func (e Elem) Level() Strength {
	switch {
	case e.Primary != 0:
		return Primary
	case e.Secondary != 0:
		return Secondary
	case e.Tertiary != 0:
		return Tertiary
	case e.Quaternary != 0:
		return Quaternary
	default:
		return Identical
	}
}

func (e Elem) withCase(c uint16) Elem {
	e.Tertiary = e.Tertiary&^caseMask | c&caseMask
	return e
}

func (e Elem) withRank(r uint16) Elem {
	e.Tertiary = r<<2 | e.Tertiary&caseMask
	return e
}

// String formats the element in the allkeys style, e.g. [*04000100.0100.0400].
func (e Elem) String() string {
	mark := '.'
	if e.Variable {
		mark = '*'
	}
	if e.Quaternary != 0 {
		return fmt.Sprintf("[%c%08X.%04X.%04X.%04X]", mark, e.Primary, e.Secondary, e.Tertiary, e.Quaternary)
	}
	return fmt.Sprintf("[%c%08X.%04X.%04X]", mark, e.Primary, e.Secondary, e.Tertiary)
}

// FormatElems renders a sequence of elements.
func FormatElems(elems []Elem) string {
	var sb strings.Builder
	for _, e := range elems {
		sb.WriteString(e.String())
	}
	return sb.String()
}

func cloneElems(elems []Elem) []Elem {
	if elems == nil {
		return nil
	}
	out := make([]Elem, len(elems))
	copy(out, elems)
	return out
}
