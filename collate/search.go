package collate

import (
	"golang.org/x/text/unicode/norm"
)

// searchElem is a collation element reduced to the weights the collator
// compares at its strength.
type searchElem struct {
	p, s, cs, t, q uint32
}

// segment is one lookup step over a text: the code points [start, end)
// and the reduced elements they map to.
type segment struct {
	start, end int
	elems      []searchElem
}

// reduce masks e to the collator's options. It reports false for elements
// that do not take part in comparison.
func (c *Collator) reduce(e Elem, afterVariable *bool) (searchElem, bool) {
	o := &c.opts
	if e.Ignorable() {
		return searchElem{}, false
	}
	var r searchElem
	if o.Variable == Shifted {
		if e.Variable {
			*afterVariable = true
			if o.Strength < Quaternary {
				return searchElem{}, false
			}
			return searchElem{q: c.table.leads.Primary(e.Primary)}, true
		}
		if e.Primary == 0 && *afterVariable {
			return searchElem{}, false
		}
		if e.Primary != 0 {
			*afterVariable = false
		}
	}
	r.p = c.table.leads.Primary(e.Primary)
	if o.Strength >= Secondary {
		r.s = uint32(e.Secondary)
	}
	if o.CaseLevel == On && e.Primary != 0 && e.Tertiary != 0 {
		r.cs = uint32(c.caseWeight(e.Case()))
	}
	if o.Strength >= Tertiary && e.Tertiary != 0 {
		r.t = uint32(c.tertiary(e))
	}
	if o.Strength >= Quaternary {
		r.q = quaternaryBase | uint32(e.Quaternary)
	}
	if r == (searchElem{}) {
		return r, false
	}
	return r, true
}

// segments splits cps into lookup steps. Discontiguous matches reorder
// marks inside a combining sequence, so only boundaries in front of a
// starter map back to positions in cps.
func (c *Collator) segments(cps []rune) []segment {
	buf := make([]rune, len(cps))
	copy(buf, cps)
	var segs []segment
	afterVariable := false
	for pos := 0; pos < len(buf); {
		elems, n := c.table.Lookup(buf, pos)
		seg := segment{start: pos, end: pos + n}
		for _, e := range elems {
			if r, ok := c.reduce(e, &afterVariable); ok {
				seg.elems = append(seg.elems, r)
			}
		}
		segs = append(segs, seg)
		pos += n
	}
	return segs
}

func (c *Collator) patternElems(pattern []rune) []searchElem {
	var out []searchElem
	for _, seg := range c.segments(pattern) {
		out = append(out, seg.elems...)
	}
	return out
}

func isStarter(r rune) bool {
	return combiningClass(r) == 0
}

// matchAt tries to match pat at segment i. A match begins in front of a
// starter, absorbs trailing marks that are ignorable at the collator's
// strength and must end in front of a starter or at the end of text.
func (c *Collator) matchAt(text []rune, segs []segment, i int, pat []searchElem, pattern []rune) (int, bool) {
	if !isStarter(text[segs[i].start]) || len(segs[i].elems) == 0 {
		return 0, false
	}
	k, j := 0, i
	for ; j < len(segs) && k < len(pat); j++ {
		es := segs[j].elems
		if len(es) > len(pat)-k {
			return 0, false
		}
		for _, e := range es {
			if e != pat[k] {
				return 0, false
			}
			k++
		}
	}
	if k < len(pat) {
		return 0, false
	}
	for j < len(segs) && len(segs[j].elems) == 0 && !isStarter(text[segs[j].start]) {
		j++
	}
	end := segs[j-1].end
	if end < len(text) && !isStarter(text[end]) {
		return 0, false
	}
	if c.opts.Strength == Identical && compareRunes(text[segs[i].start:end], pattern) != 0 {
		return 0, false
	}
	return end, true
}

// Index returns the first match of pattern in text as the code point range
// [start, end), or -1, -1. Matches are compared at the collator's options
// and never split a combining sequence. A pattern without collation
// weights matches at 0.
func (c *Collator) Index(text, pattern []rune) (start, end int) {
	ms := c.index(text, pattern, 1, nil)
	if len(ms) == 0 {
		return -1, -1
	}
	return ms[0][0], ms[0][1]
}

// IndexAll returns the non-overlapping matches of pattern in text, at most
// n of them when n >= 0.
func (c *Collator) IndexAll(text, pattern []rune, n int) [][2]int {
	return c.index(text, pattern, n, nil)
}

// index collects up to n matches. A non-nil cut restricts match bounds to
// the positions it marks.
func (c *Collator) index(text, pattern []rune, n int, cut []bool) [][2]int {
	pat := c.patternElems(pattern)
	if len(pat) == 0 {
		return [][2]int{{0, 0}}
	}
	segs := c.segments(text)
	var out [][2]int
	for i := 0; i < len(segs) && (n < 0 || len(out) < n); i++ {
		end, ok := c.matchAt(text, segs, i, pat, pattern)
		if !ok || cut != nil && !(cut[segs[i].start] && cut[end]) {
			continue
		}
		out = append(out, [2]int{segs[i].start, end})
		for i+1 < len(segs) && segs[i+1].start < end {
			i++
		}
	}
	return out
}

// IndexString normalizes s and pattern to NFD and returns the first match
// as a byte range of s, or -1, -1. Match bounds fall on normalization
// segment boundaries of s.
func (c *Collator) IndexString(s, pattern string) (start, end int) {
	text, offsets, cut := nfdOffsets(s)
	ms := c.index(text, []rune(norm.NFD.String(pattern)), 1, cut)
	if len(ms) == 0 {
		return -1, -1
	}
	return offsets[ms[0][0]], offsets[ms[0][1]]
}

// ContainsString reports whether pattern occurs in s.
func (c *Collator) ContainsString(s, pattern string) bool {
	start, _ := c.IndexString(s, pattern)
	return start >= 0
}

// nfdOffsets returns the NFD code points of s. offsets maps each position
// to the byte offset in s of the normalization segment holding it; cut
// marks the positions in front of a segment and the end.
func nfdOffsets(s string) (text []rune, offsets []int, cut []bool) {
	var it norm.Iter
	it.InitString(norm.NFD, s)
	for !it.Done() {
		from := it.Pos()
		first := true
		for _, r := range string(it.Next()) {
			text = append(text, r)
			offsets = append(offsets, from)
			cut = append(cut, first)
			first = false
		}
	}
	offsets = append(offsets, len(s))
	cut = append(cut, true)
	return text, offsets, cut
}
