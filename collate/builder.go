package collate

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

type bnode struct {
	children map[rune]int32
	elems    []Elem
	has      bool
}

// Builder assembles a Table. It is not safe for concurrent use; Build
// publishes an immutable snapshot and the builder may keep being edited.
type Builder struct {
	nodes          []bnode // nodes[0] is the root
	count          int
	provenance     string
	retainCaseBits bool
	normalization  bool
	settings       Options
	leads          LeadOrder
	implicit       ImplicitPolicy
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:          make([]bnode, 1),
		retainCaseBits: true,
		leads:          IdentityLeadOrder(),
		implicit:       BlockImplicits{},
	}
}

func validKey(key []rune) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	for _, r := range key {
		if !utf8.ValidRune(r) {
			return fmt.Errorf("%w: %U", ErrInvalidKey, r)
		}
	}
	return nil
}

// Insert maps key to a copy of elems, replacing any previous mapping.
func (b *Builder) Insert(key []rune, elems []Elem) error {
	if err := validKey(key); err != nil {
		return err
	}
	if len(elems) == 0 {
		return ErrEmptyElems
	}
	n := int32(0)
	for _, cp := range key {
		c, ok := b.nodes[n].children[cp]
		if !ok {
			c = int32(len(b.nodes))
			b.nodes = append(b.nodes, bnode{})
			if b.nodes[n].children == nil {
				b.nodes[n].children = make(map[rune]int32)
			}
			b.nodes[n].children[cp] = c
		}
		n = c
	}
	if !b.nodes[n].has {
		b.count++
	}
	b.nodes[n].elems = cloneElems(elems)
	b.nodes[n].has = true
	return nil
}

func (b *Builder) find(key []rune) int32 {
	n := int32(0)
	for _, cp := range key {
		c, ok := b.nodes[n].children[cp]
		if !ok {
			return -1
		}
		n = c
	}
	return n
}

// Get returns the elements stored for exactly key.
func (b *Builder) Get(key []rune) ([]Elem, bool) {
	n := b.find(key)
	if n <= 0 || !b.nodes[n].has {
		return nil, false
	}
	return b.nodes[n].elems, true
}

// Remove deletes the mapping for key and reports whether it existed.
func (b *Builder) Remove(key []rune) bool {
	n := b.find(key)
	if n <= 0 || !b.nodes[n].has {
		return false
	}
	b.nodes[n].elems = nil
	b.nodes[n].has = false
	b.count--
	return true
}

// Len returns the number of keys.
func (b *Builder) Len() int { return b.count }

// Lookup behaves like Table.Lookup against the builder's current content.
func (b *Builder) Lookup(cps []rune, pos int) ([]Elem, int) {
	return lookup(b, b.implicit, cps, pos)
}

func (b *Builder) child(n int32, cp rune) int32 {
	if c, ok := b.nodes[n].children[cp]; ok {
		return c
	}
	return -1
}

func (b *Builder) value(n int32) ([]Elem, bool) {
	nd := &b.nodes[n]
	return nd.elems, nd.has
}

func (b *Builder) leaf(n int32) bool { return len(b.nodes[n].children) == 0 }

// SetProvenance records where the table came from.
func (b *Builder) SetProvenance(s string) { b.provenance = s }

// SetRetainCaseBits controls whether case bits survive into the table.
func (b *Builder) SetRetainCaseBits(v bool) { b.retainCaseBits = v }

// SetNormalization records the normalization directive.
func (b *Builder) SetNormalization(v bool) { b.normalization = v }

// SetSettings records option defaults for collators built on the table.
func (b *Builder) SetSettings(o Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	b.settings = o
	return nil
}

// SetLeadOrder installs a lead-byte order.
func (b *Builder) SetLeadOrder(o LeadOrder) { b.leads = o }

// SetImplicitPolicy replaces the implicit weight policy.
func (b *Builder) SetImplicitPolicy(p ImplicitPolicy) {
	if p == nil {
		p = BlockImplicits{}
	}
	b.implicit = p
}

// each calls fn for every key in code point order. fn receives the
// builder-owned element slice and may rewrite weights in place.
func (b *Builder) each(fn func(key []rune, elems []Elem)) {
	var key []rune
	var walk func(n int32)
	walk = func(n int32) {
		nd := &b.nodes[n]
		if nd.has && n != 0 {
			fn(key, nd.elems)
		}
		for _, cp := range sortedChildren(nd.children) {
			key = append(key, cp)
			walk(nd.children[cp])
			key = key[:len(key)-1]
		}
	}
	walk(0)
}

func sortedChildren(m map[rune]int32) []rune {
	cps := make([]rune, 0, len(m))
	for cp := range m {
		cps = append(cps, cp)
	}
	sort.Slice(cps, func(i, j int) bool { return cps[i] < cps[j] })
	return cps
}

// live reports, per node, whether the node or a descendant holds a value.
func (b *Builder) live() []bool {
	live := make([]bool, len(b.nodes))
	var mark func(n int32) bool
	mark = func(n int32) bool {
		nd := &b.nodes[n]
		l := nd.has
		for _, c := range nd.children {
			if mark(c) {
				l = true
			}
		}
		live[n] = l
		return l
	}
	mark(0)
	return live
}

// Build publishes an immutable table. Children are laid out breadth first
// so that every node's children are contiguous.
func (b *Builder) Build() (*Table, error) {
	live := b.live()
	t := &Table{
		trie:           trie{roots: make(map[rune]int32)},
		count:          b.count,
		provenance:     b.provenance,
		retainCaseBits: b.retainCaseBits,
		normalization:  b.normalization,
		settings:       b.settings,
		leads:          b.leads,
		implicit:       b.implicit,
	}
	t.nodes = append(t.nodes, node{})
	queue := []int32{0}
	frozen := []int32{0}
	for len(queue) > 0 {
		src, dst := queue[0], frozen[0]
		queue, frozen = queue[1:], frozen[1:]
		nd := &b.nodes[src]
		first := int32(len(t.nodes))
		var count int32
		for _, cp := range sortedChildren(nd.children) {
			c := nd.children[cp]
			if !live[c] {
				continue
			}
			idx := int32(len(t.nodes))
			fn := node{cp: cp}
			if cn := &b.nodes[c]; cn.has {
				fn.start = int32(len(t.elems))
				for _, e := range cn.elems {
					if e.Variable && e.Primary == 0 {
						return nil, fmt.Errorf("collate: variable element %s without primary weight", e)
					}
					if !b.retainCaseBits {
						e = e.withCase(CaseLower)
					}
					t.elems = append(t.elems, e)
				}
				fn.end = int32(len(t.elems))
			}
			t.nodes = append(t.nodes, fn)
			if src == 0 {
				t.roots[cp] = idx
			}
			queue = append(queue, c)
			frozen = append(frozen, idx)
			count++
		}
		t.nodes[dst].first = first
		t.nodes[dst].count = count
	}
	t.variableTop = computeVariableTop(t.elems, &t.leads)
	return t, nil
}

// computeVariableTop returns one past the largest logical primary of any
// variable element, or 0 when there is none.
func computeVariableTop(elems []Elem, leads *LeadOrder) uint32 {
	var top uint32
	for _, e := range elems {
		if e.Variable && e.Primary != 0 {
			if p := leads.Primary(e.Primary) + 1; p > top {
				top = p
			}
		}
	}
	return top
}
