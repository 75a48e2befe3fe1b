package collate

// Table is an immutable collation table: a trie from keys to collation
// element sequences plus table-wide metadata. A Table is safe for
// concurrent use.
type Table struct {
	trie
	count          int
	variableTop    uint32
	provenance     string
	retainCaseBits bool
	normalization  bool
	settings       Options
	leads          LeadOrder
	implicit       ImplicitPolicy
}

// Lookup returns the elements for the longest match starting at cps[pos]
// and the number of code points consumed. It never fails: code points
// without an entry receive implicit weights.
//
// A discontiguous contraction match reorders cps[pos:] in place: the
// non-starters that complete the contraction are moved next to it and the
// skipped ones follow, in their original order. The returned slice is
// owned by the table and must not be modified.
func (t *Table) Lookup(cps []rune, pos int) ([]Elem, int) {
	return lookup(&t.trie, t.implicit, cps, pos)
}

// Elements returns the full element stream for cps without modifying it.
func (t *Table) Elements(cps []rune) []Elem {
	var out []Elem
	it := t.Iter(cps)
	for it.Next() {
		out = append(out, it.Elems()...)
	}
	return out
}

// Iter returns a cursor over the element stream of cps. The input is
// copied.
func (t *Table) Iter(cps []rune) *Iter {
	buf := make([]rune, len(cps))
	copy(buf, cps)
	return &Iter{t: t, cps: buf}
}

// Iter walks the lookup matches of a code point sequence.
type Iter struct {
	t     *Table
	cps   []rune
	pos   int
	elems []Elem
	n     int
}

// Next advances to the next match.
func (it *Iter) Next() bool {
	if it.pos >= len(it.cps) {
		return false
	}
	it.elems, it.n = it.t.Lookup(it.cps, it.pos)
	it.pos += it.n
	return true
}

// Elems returns the elements of the current match.
func (it *Iter) Elems() []Elem { return it.elems }

// Consumed returns the number of code points of the current match.
func (it *Iter) Consumed() int { return it.n }

// Len returns the number of explicit keys.
func (t *Table) Len() int { return t.count }

// VariableTop returns the logical primary below which every variable
// element lies.
func (t *Table) VariableTop() uint32 { return t.variableTop }

// Provenance describes where the table came from.
func (t *Table) Provenance() string { return t.provenance }

// RetainCaseBits reports whether elements keep their case bits.
func (t *Table) RetainCaseBits() bool { return t.retainCaseBits }

// Normalization reports whether the rules requested normalization.
func (t *Table) Normalization() bool { return t.normalization }

// Settings returns the option defaults recorded by rule directives.
func (t *Table) Settings() Options { return t.settings }

// LeadOrder returns the lead-byte order.
func (t *Table) LeadOrder() LeadOrder { return t.leads }

// ImplicitPolicy returns the implicit weight policy.
func (t *Table) ImplicitPolicy() ImplicitPolicy { return t.implicit }

// LogicalPrimary maps a stored primary to the value used for comparison.
func (t *Table) LogicalPrimary(p uint32) uint32 { return t.leads.Primary(p) }

// Walk calls fn for every key in code point order. The slices passed to fn
// are only valid during the call.
func (t *Table) Walk(fn func(key []rune, elems []Elem) error) error {
	var key []rune
	var walk func(n int32) error
	walk = func(n int32) error {
		nd := &t.nodes[n]
		for c := nd.first; c < nd.first+nd.count; c++ {
			key = append(key, t.nodes[c].cp)
			if elems, ok := t.value(c); ok {
				if err := fn(key, elems); err != nil {
					return err
				}
			}
			if err := walk(c); err != nil {
				return err
			}
			key = key[:len(key)-1]
		}
		return nil
	}
	return walk(0)
}

// VisitNodes calls fn for every trie node in preorder, children sorted by
// code point. elems is nil for nodes without a value.
func (t *Table) VisitNodes(fn func(cp rune, children int, elems []Elem) error) error {
	var walk func(n int32) error
	walk = func(n int32) error {
		nd := &t.nodes[n]
		for c := nd.first; c < nd.first+nd.count; c++ {
			elems, _ := t.value(c)
			if err := fn(t.nodes[c].cp, int(t.nodes[c].count), elems); err != nil {
				return err
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0)
}

// Roots returns the number of top-level trie nodes.
func (t *Table) Roots() int { return int(t.nodes[0].count) }

// Builder returns a builder holding a copy of the table.
func (t *Table) Builder() *Builder {
	b := NewBuilder()
	_ = t.Walk(func(key []rune, elems []Elem) error {
		return b.Insert(key, elems)
	})
	b.provenance = t.provenance
	b.retainCaseBits = t.retainCaseBits
	b.normalization = t.normalization
	b.settings = t.settings
	b.leads = t.leads
	b.implicit = t.implicit
	return b
}

// GroupName returns the reorder group of a physical lead byte.
func (t *Table) GroupName(lead byte) string {
	return getLayout().groupName(t.leads.Parent(lead))
}
