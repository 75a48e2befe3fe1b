package collate

import (
	"sort"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Spacing between consecutive base weights, leaving room for tailoring.
const (
	primaryStep       = 0x100
	secondaryMarkBase = 0x0400
	secondaryMarkStep = 0x10
)

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// DefaultTable returns the root table. It is built on first use from the
// Unicode tables and then shared read-only.
func DefaultTable() *Table {
	defaultOnce.Do(func() {
		t, err := BaseBuilder().Build()
		if err != nil {
			panic("collate: building base table: " + err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}

// charClass is the base classification of an atomic code point.
type charClass uint8

const (
	classIgnorable charClass = iota
	classMark
	classSpace
	classPunct
	classSymbol
	classCurrency
	classDigit
	classNumber
	classLetter
)

type baseData struct {
	layout *layout
	atoms  map[rune][]Elem
	decomp map[rune]string // canonical or compatibility decomposition
	compat map[rune]bool
	memo   map[rune][]Elem
}

// BaseBuilder returns a builder holding the root table.
//
// Code points in coverage without a decomposition get their own weights.
// Marks are secondary-only, spaces and punctuation are variable, digits
// share one primary per numeric value, and letters are ordered by their
// lowercase form inside one lead byte per script with case in the tertiary
// case bits. Decomposable code points expand to the elements of their
// decomposition; compatibility decompositions raise the tertiary rank.
func BaseBuilder() *Builder {
	d := &baseData{
		layout: getLayout(),
		atoms:  make(map[rune][]Elem),
		decomp: make(map[rune]string),
		compat: make(map[rune]bool),
		memo:   make(map[rune][]Elem),
	}
	classes := make(map[charClass][]rune)
	for _, c := range coverage {
		for r := c.lo; r <= c.hi; r++ {
			if !isAssigned(r) || unicode.Is(unicode.Cs, r) || unicode.Is(unicode.Co, r) {
				continue
			}
			s := string(r)
			if nfd := norm.NFD.String(s); nfd != s {
				d.decomp[r] = nfd
				continue
			}
			if nfkd := norm.NFKD.String(s); nfkd != s {
				d.decomp[r] = nfkd
				d.compat[r] = true
				continue
			}
			cl := classify(r)
			classes[cl] = append(classes[cl], r)
		}
	}

	for _, r := range classes[classIgnorable] {
		d.atoms[r] = []Elem{{}}
	}
	for i, r := range classes[classMark] {
		d.atoms[r] = []Elem{{
			Secondary: secondaryMarkBase + uint16(i)*secondaryMarkStep,
			Tertiary:  TertiaryCommon,
		}}
	}
	d.assignSequential(classes[classSpace], leadSpace, true)
	d.assignSequential(classes[classPunct], leadPunct, true)
	d.assignSequential(classes[classSymbol], leadSymbol, false)
	d.assignSequential(classes[classCurrency], leadCurrency, false)
	d.assignDigits(classes[classDigit], classes[classNumber])
	d.assignLetters(classes[classLetter])

	b := NewBuilder()
	b.SetProvenance("root")
	keys := make([]rune, 0, len(d.atoms)+len(d.decomp))
	for r := range d.atoms {
		keys = append(keys, r)
	}
	for r := range d.decomp {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, r := range keys {
		// Every key is a single valid code point with a non-empty
		// expansion, so Insert cannot fail.
		_ = b.Insert([]rune{r}, d.elems(r))
	}
	return b
}

func classify(r rune) charClass {
	switch {
	case unicode.In(r, unicode.M):
		return classMark
	case unicode.IsSpace(r), unicode.In(r, unicode.Z):
		return classSpace
	case unicode.In(r, unicode.Cc, unicode.Cf):
		return classIgnorable
	case unicode.In(r, unicode.P):
		return classPunct
	case unicode.Is(unicode.Sc, r):
		return classCurrency
	case unicode.In(r, unicode.S):
		return classSymbol
	case unicode.Is(unicode.Nd, r):
		return classDigit
	case unicode.In(r, unicode.N):
		return classNumber
	default:
		return classLetter
	}
}

func (d *baseData) assignSequential(rs []rune, lead byte, variable bool) {
	for i, r := range rs {
		d.atoms[r] = []Elem{{
			Primary:   uint32(lead)<<24 | uint32(i+1)*primaryStep,
			Secondary: SecondaryCommon,
			Tertiary:  TertiaryCommon,
			Variable:  variable,
		}}
	}
}

// assignDigits gives every decimal digit the primary of its value, then
// appends the other numeric characters.
func (d *baseData) assignDigits(digits, numbers []rune) {
	for _, r := range digits {
		d.atoms[r] = []Elem{{
			Primary:   leadDigit<<24 | uint32(digitValue(r)+1)*primaryStep,
			Secondary: SecondaryCommon,
			Tertiary:  TertiaryCommon,
		}}
	}
	for i, r := range numbers {
		d.atoms[r] = []Elem{{
			Primary:   leadDigit<<24 | uint32(11+i)*primaryStep,
			Secondary: SecondaryCommon,
			Tertiary:  TertiaryCommon,
		}}
	}
}

// digitValue relies on decimal digits being encoded in runs starting at
// zero.
func digitValue(r rune) int {
	for _, rg := range unicode.Nd.R16 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return int(r-rune(rg.Lo)) % 10
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return int(r-rune(rg.Lo)) % 10
		}
	}
	return 0
}

// assignLetters orders letters per script by their lowercase form. Upper
// and title case letters share the primary of their lowercase letter.
func (d *baseData) assignLetters(letters []rune) {
	isLetter := make(map[rune]bool, len(letters))
	for _, r := range letters {
		isLetter[r] = true
	}
	leadOf := func(r rune) byte {
		if l, ok := d.layout.scriptOf[r]; ok {
			return l
		}
		return leadOthers
	}
	owner := func(r rune) rune {
		if lo := unicode.ToLower(r); lo != r && isLetter[lo] && leadOf(lo) == leadOf(r) {
			return lo
		}
		return r
	}

	byLead := make(map[byte][]rune)
	for _, r := range letters {
		if owner(r) == r {
			byLead[leadOf(r)] = append(byLead[leadOf(r)], r)
		}
	}
	primaries := make(map[rune]uint32, len(letters))
	for lead, rs := range byLead {
		for i, r := range rs {
			primaries[r] = uint32(lead)<<24 | uint32(i+1)*primaryStep
		}
	}
	for _, r := range letters {
		c := CaseLower
		switch {
		case unicode.IsUpper(r):
			c = CaseUpper
		case unicode.IsTitle(r):
			c = CaseMixed
		}
		d.atoms[r] = []Elem{{
			Primary:   primaries[owner(r)],
			Secondary: SecondaryCommon,
			Tertiary:  TertiaryCommon | c,
		}}
	}
}

// elems resolves the elements of a covered code point, expanding
// decompositions recursively.
func (d *baseData) elems(r rune) []Elem {
	if e, ok := d.atoms[r]; ok {
		return e
	}
	if e, ok := d.memo[r]; ok {
		return e
	}
	decomp, ok := d.decomp[r]
	if !ok {
		return []Elem{BlockImplicits{}.Implicit(r)}
	}
	var out []Elem
	for _, part := range decomp {
		if part == r {
			out = append(out, BlockImplicits{}.Implicit(r))
			continue
		}
		out = append(out, d.elems(part)...)
	}
	if d.compat[r] {
		for i := range out {
			if out[i].Tertiary != 0 {
				out[i] = out[i].withRank(tertiaryRankCompat)
			}
		}
	}
	d.memo[r] = out
	return out
}
