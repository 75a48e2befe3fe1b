package collate

import (
	"sort"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxDiscontiguous bounds the run of non-starters scanned for a
// discontiguous contraction match (the stream-safe limit).
const maxDiscontiguous = 30

// matcher is the read interface shared by the frozen trie and the mutable
// builder trie. Node 0 is the root; a negative index means "no node".
type matcher interface {
	child(n int32, cp rune) int32
	value(n int32) ([]Elem, bool)
	leaf(n int32) bool
}

// node is a frozen trie node. Children of a node are stored contiguously
// and sorted by code point.
type node struct {
	cp    rune
	first int32 // index of first child
	count int32 // number of children
	start int32 // elems[start:end] is the value
	end   int32
}

type trie struct {
	roots map[rune]int32
	nodes []node // nodes[0] is the root
	elems []Elem
}

func (t *trie) child(n int32, cp rune) int32 {
	if n == 0 {
		if c, ok := t.roots[cp]; ok {
			return c
		}
		return -1
	}
	nd := &t.nodes[n]
	kids := t.nodes[nd.first : nd.first+nd.count]
	i := sort.Search(len(kids), func(i int) bool { return kids[i].cp >= cp })
	if i < len(kids) && kids[i].cp == cp {
		return nd.first + int32(i)
	}
	return -1
}

func (t *trie) value(n int32) ([]Elem, bool) {
	nd := &t.nodes[n]
	if nd.start == nd.end {
		return nil, false
	}
	return t.elems[nd.start:nd.end:nd.end], true
}

func (t *trie) leaf(n int32) bool { return t.nodes[n].count == 0 }

// lookup finds the longest match at cps[pos], extends it with
// discontiguous non-starters, and falls back to implicit weights.
// A discontiguous match moves the consumed non-starters next to the match,
// so the skipped ones follow in their original order.
func lookup(m matcher, imp ImplicitPolicy, cps []rune, pos int) ([]Elem, int) {
	n := m.child(0, cps[pos])
	if n < 0 {
		return fallback(m, imp, cps[pos]), 1
	}
	best, end := int32(-1), pos
	if _, ok := m.value(n); ok {
		best, end = n, pos+1
	}
	for i := pos + 1; i < len(cps) && !m.leaf(n); i++ {
		c := m.child(n, cps[i])
		if c < 0 {
			break
		}
		n = c
		if _, ok := m.value(n); ok {
			best, end = n, i+1
		}
	}
	if best < 0 {
		return fallback(m, imp, cps[pos]), 1
	}
	best, end = extendDiscontiguous(m, cps, best, end)
	elems, _ := m.value(best)
	return elems, end - pos
}

func extendDiscontiguous(m matcher, cps []rune, n int32, end int) (int32, int) {
	var (
		lastSkipped uint8
		skipped     int
	)
	for j, scanned := end, 0; j < len(cps) && scanned < maxDiscontiguous && !m.leaf(n); j, scanned = j+1, scanned+1 {
		ccc := combiningClass(cps[j])
		if ccc == 0 {
			break
		}
		if skipped == 0 || lastSkipped < ccc {
			if c := m.child(n, cps[j]); c >= 0 {
				if _, ok := m.value(c); ok {
					cp := cps[j]
					copy(cps[end+1:j+1], cps[end:j])
					cps[end] = cp
					end++
					n = c
					continue
				}
			}
		}
		lastSkipped = ccc
		skipped++
	}
	return n, end
}

func fallback(m matcher, imp ImplicitPolicy, r rune) []Elem {
	if isHangulSyllable(r) {
		var out []Elem
		for _, j := range decomposeHangul(r) {
			if n := m.child(0, j); n >= 0 {
				if e, ok := m.value(n); ok {
					out = append(out, e...)
					continue
				}
			}
			out = append(out, imp.Implicit(j))
		}
		return out
	}
	return []Elem{imp.Implicit(r)}
}

func combiningClass(r rune) uint8 {
	if r < 0x300 {
		return 0
	}
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	return norm.NFD.Properties(buf[:n]).CCC()
}
