package collate

import (
	"bytes"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// quaternaryBase is the quaternary weight of non-variable elements under
// shifted weighting; tailored quaternary weights are added to it.
const quaternaryBase uint32 = 0xFFFF0000

// Key widths in base-255 digits.
const (
	widthPrimary    = 5
	widthSecondary  = 3
	widthTertiary   = 3
	widthCase       = 1
	widthQuaternary = 5
	widthIdentical  = 3

	levelSeparator byte = 0x00
)

// Collator compares code point sequences with a table and options. A
// Collator is immutable and safe for concurrent use.
type Collator struct {
	table *Table
	opts  Options
}

// New returns a collator for t. Table settings take precedence over the
// built-in defaults; opts take precedence over both. A nil table selects
// DefaultTable.
func New(t *Table, opts ...Option) *Collator {
	if t == nil {
		t = DefaultTable()
	}
	o := DefaultOptions.Merge(t.Settings())
	for _, opt := range opts {
		opt(&o)
	}
	o = DefaultOptions.Merge(o)
	return &Collator{table: t, opts: o}
}

// Table returns the collator's table.
func (c *Collator) Table() *Table { return c.table }

// Options returns the resolved options.
func (c *Collator) Options() Options { return c.opts }

// levels holds the per-level weight arrays of one sequence.
type levels struct {
	l1, l2, lc, l3, l4 []uint32
	ident              []rune
}

func (c *Collator) weights(cps []rune) *levels {
	lv := &levels{}
	buf := make([]rune, len(cps))
	copy(buf, cps)

	o := &c.opts
	shifted := o.Variable == Shifted
	afterVariable := false
	for pos := 0; pos < len(buf); {
		elems, n := c.table.Lookup(buf, pos)
		pos += n
		for _, e := range elems {
			if e.Ignorable() {
				continue
			}
			if shifted {
				if e.Variable {
					afterVariable = true
					lv.l4 = append(lv.l4, c.table.leads.Primary(e.Primary))
					continue
				}
				if e.Primary == 0 && afterVariable {
					continue
				}
				if e.Primary != 0 {
					afterVariable = false
				}
			}
			lv.l4 = append(lv.l4, quaternaryBase|uint32(e.Quaternary))
			if e.Primary != 0 {
				lv.l1 = append(lv.l1, c.table.leads.Primary(e.Primary))
			}
			if e.Secondary != 0 {
				lv.l2 = append(lv.l2, uint32(e.Secondary))
			}
			if e.Tertiary != 0 {
				lv.l3 = append(lv.l3, uint32(c.tertiary(e)))
				if o.CaseLevel == On && e.Primary != 0 {
					lv.lc = append(lv.lc, uint32(c.caseWeight(e.Case())))
				}
			}
		}
	}
	if o.L2Order == Backward {
		for i, j := 0, len(lv.l2)-1; i < j; i, j = i+1, j-1 {
			lv.l2[i], lv.l2[j] = lv.l2[j], lv.l2[i]
		}
	}
	if o.Strength == Identical {
		lv.ident = cps
	}
	return lv
}

// tertiary returns the tertiary weight as compared. With the case level on
// case bits are dropped; with caseFirst set, case becomes the most
// significant part of the weight.
func (c *Collator) tertiary(e Elem) uint16 {
	switch {
	case c.opts.CaseLevel == On:
		return e.Tertiary &^ caseMask
	case c.opts.CaseFirst == UpperFirst:
		return (CaseUpper-clampCase(e.Case()))<<14 | e.TertiaryRank()
	case c.opts.CaseFirst == LowerFirst:
		return clampCase(e.Case())<<14 | e.TertiaryRank()
	default:
		return e.Tertiary
	}
}

func (c *Collator) caseWeight(cs uint16) uint16 {
	cs = clampCase(cs)
	if c.opts.CaseFirst == UpperFirst {
		return CaseUpper - cs + 1
	}
	return cs + 1
}

func clampCase(cs uint16) uint16 {
	if cs > CaseUpper {
		return CaseUpper
	}
	return cs
}

// Key returns a sort key for cps. Keys compare with bytes.Compare exactly
// as Compare orders their sequences.
func (c *Collator) Key(cps []rune) []byte {
	return c.AppendKey(nil, cps)
}

// AppendKey appends the sort key for cps to dst.
func (c *Collator) AppendKey(dst []byte, cps []rune) []byte {
	lv := c.weights(cps)
	s := c.opts.Strength
	dst = appendLevel(dst, lv.l1, widthPrimary)
	if s >= Secondary {
		dst = append(dst, levelSeparator)
		dst = appendLevel(dst, lv.l2, widthSecondary)
	}
	if c.opts.CaseLevel == On {
		dst = append(dst, levelSeparator)
		dst = appendLevel(dst, lv.lc, widthCase)
	}
	if s >= Tertiary {
		dst = append(dst, levelSeparator)
		dst = appendLevel(dst, lv.l3, widthTertiary)
	}
	if s >= Quaternary {
		dst = append(dst, levelSeparator)
		dst = appendLevel(dst, lv.l4, widthQuaternary)
	}
	if s == Identical {
		dst = append(dst, levelSeparator)
		for _, r := range lv.ident {
			dst = appendWeight(dst, uint32(r), widthIdentical)
		}
	}
	return dst
}

func appendLevel(dst []byte, ws []uint32, width int) []byte {
	for _, w := range ws {
		dst = appendWeight(dst, w, width)
	}
	return dst
}

// appendWeight writes w as fixed-width base-255 digits offset by one, so
// no weight byte collides with the level separator.
func appendWeight(dst []byte, w uint32, width int) []byte {
	var digits [5]byte
	for i := width - 1; i >= 0; i-- {
		digits[i] = byte(w%255) + 1
		w /= 255
	}
	return append(dst, digits[:width]...)
}

// Compare returns -1, 0 or 1 as a sorts before, equal to or after b. It
// compares level by level and stops at the first difference.
func (c *Collator) Compare(a, b []rune) int {
	la, lb := c.weights(a), c.weights(b)
	if r := compareWeights(la.l1, lb.l1); r != 0 {
		return r
	}
	s := c.opts.Strength
	if s >= Secondary {
		if r := compareWeights(la.l2, lb.l2); r != 0 {
			return r
		}
	}
	if c.opts.CaseLevel == On {
		if r := compareWeights(la.lc, lb.lc); r != 0 {
			return r
		}
	}
	if s >= Tertiary {
		if r := compareWeights(la.l3, lb.l3); r != 0 {
			return r
		}
	}
	if s >= Quaternary {
		if r := compareWeights(la.l4, lb.l4); r != 0 {
			return r
		}
	}
	if s == Identical {
		return compareRunes(la.ident, lb.ident)
	}
	return 0
}

func compareWeights(a, b []uint32) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func compareRunes(a, b []rune) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// KeyString normalizes s to NFD and returns its sort key.
func (c *Collator) KeyString(s string) []byte {
	return c.Key([]rune(norm.NFD.String(s)))
}

// CompareString normalizes a and b to NFD and compares them.
func (c *Collator) CompareString(a, b string) int {
	return c.Compare([]rune(norm.NFD.String(a)), []rune(norm.NFD.String(b)))
}

// Sort sorts strs in place, keeping the input order of equal strings.
func (c *Collator) Sort(strs []string) {
	keys := make([][]byte, len(strs))
	for i, s := range strs {
		keys[i] = c.KeyString(s)
	}
	sort.Stable(&keyedStrings{strs: strs, keys: keys})
}

type keyedStrings struct {
	strs []string
	keys [][]byte
}

func (k *keyedStrings) Len() int           { return len(k.strs) }
func (k *keyedStrings) Less(i, j int) bool { return bytes.Compare(k.keys[i], k.keys[j]) < 0 }
func (k *keyedStrings) Swap(i, j int) {
	k.strs[i], k.strs[j] = k.strs[j], k.strs[i]
	k.keys[i], k.keys[j] = k.keys[j], k.keys[i]
}
