package collate

import (
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Lead bytes of implicit primaries.
const (
	leadHanCore    = 0xE0
	leadHanExt     = 0xE1
	leadPlaneFirst = 0xE4
	leadPlaneLast  = leadPlaneFirst + 0x10
)

// Implicit ranks are spaced so that tailored primaries fit between two
// neighbouring implicit characters.
const (
	implicitCoreShift  = 7
	implicitExtShift   = 5
	implicitPlaneShift = 6

	hanCoreSize = 0x5400  // URO plus compatibility ideographs
	hanExtSize  = 0x21A00 // extension A plus planes 2 and 3
)

// ImplicitPolicy derives elements for code points without an explicit
// table entry.
type ImplicitPolicy interface {
	// Name identifies the policy in serialized tables.
	Name() string
	// Implicit returns the element for r.
	Implicit(r rune) Elem
}

var (
	policiesMu sync.RWMutex
	policies   = map[string]ImplicitPolicy{"block": BlockImplicits{}}
)

// RegisterImplicitPolicy makes p available to ImplicitPolicyByName, so
// that serialized tables using it can be decoded.
func RegisterImplicitPolicy(p ImplicitPolicy) {
	policiesMu.Lock()
	defer policiesMu.Unlock()
	policies[p.Name()] = p
}

// ImplicitPolicyByName returns a registered policy.
func ImplicitPolicyByName(name string) (ImplicitPolicy, bool) {
	policiesMu.RLock()
	defer policiesMu.RUnlock()
	p, ok := policies[name]
	return p, ok
}

// BlockImplicits is the default ImplicitPolicy. Han ideographs get their own
// lead bytes; every other code point is weighted within its plane by its
// 4096 code point block, unassigned code points after assigned ones.
type BlockImplicits struct{}

// Name implements ImplicitPolicy.
func (BlockImplicits) Name() string { return "block" }

// Implicit implements ImplicitPolicy.
func (BlockImplicits) Implicit(r rune) Elem {
	return Elem{Primary: implicitPrimary(r), Secondary: SecondaryCommon, Tertiary: TertiaryCommon}
}

func implicitPrimary(r rune) uint32 {
	if r < 0 || r > unicode.MaxRune {
		r = unicode.ReplacementChar
	}
	assigned := isAssigned(r)
	switch {
	case r >= 0x4E00 && r <= 0x9FFF, r >= 0xF900 && r <= 0xFAFF:
		idx := uint32(r - 0x4E00)
		if r >= 0xF900 {
			idx = 0x5200 + uint32(r-0xF900)
		}
		if !assigned {
			idx += hanCoreSize
		}
		return leadHanCore<<24 | idx<<implicitCoreShift
	case r >= 0x3400 && r <= 0x4DBF, r >= 0x20000 && r <= 0x3FFFF:
		idx := uint32(r - 0x3400)
		if r >= 0x20000 {
			idx = 0x1A00 + uint32(r-0x20000)
		}
		if !assigned {
			idx += hanExtSize
		}
		return leadHanExt<<24 | idx<<implicitExtShift
	}
	plane := uint32(r) >> 16
	off := uint32(r) & 0xFFFF
	block := off &^ 0xFFF
	idx := block*2 + off - block
	if !assigned {
		idx += 0x1000
	}
	return (leadPlaneFirst+plane)<<24 | idx<<implicitPlaneShift
}

// implicitShift reports the rank spacing used under an implicit lead byte.
func implicitShift(lead byte) (uint, bool) {
	switch {
	case lead == leadHanCore:
		return implicitCoreShift, true
	case lead == leadHanExt:
		return implicitExtShift, true
	case lead >= leadPlaneFirst && lead <= leadPlaneLast:
		return implicitPlaneShift, true
	}
	return 0, false
}

func isAssigned(r rune) bool {
	return unicode.In(r, unicode.L, unicode.M, unicode.N, unicode.P, unicode.S, unicode.Z, unicode.C)
}

// Hangul syllables without an explicit entry are weighted as their jamo.
const (
	hangulBase  = 0xAC00
	hangulCount = 11172
)

func isHangulSyllable(r rune) bool {
	return r >= hangulBase && r < hangulBase+hangulCount
}

func decomposeHangul(r rune) []rune {
	return []rune(norm.NFD.String(string(r)))
}
