package collate

import "fmt"

// LeadOrder maps physical lead bytes, as stored in primaries, to the
// logical lead bytes used when primaries are compared. Reordering and
// lead-byte renumbering only ever rewrite this table.
//
// Parent records the base lead byte whose group a physical lead byte
// belongs to; a lead byte created by renumbering inherits its parent's
// group.
type LeadOrder struct {
	logical [256]uint8
	parent  [256]uint8
}

// IdentityLeadOrder maps every lead byte to itself.
func IdentityLeadOrder() LeadOrder {
	var o LeadOrder
	for i := range o.logical {
		o.logical[i] = uint8(i)
		o.parent[i] = uint8(i)
	}
	return o
}

// NewLeadOrder validates and returns a lead order. logical must be a
// permutation that keeps lead byte 0 first, and every parent must be its
// own parent.
func NewLeadOrder(logical, parent [256]byte) (LeadOrder, error) {
	var seen [256]bool
	for _, l := range logical {
		if seen[l] {
			return LeadOrder{}, fmt.Errorf("collate: lead order is not a permutation (logical %#02x repeated)", l)
		}
		seen[l] = true
	}
	if logical[0] != 0 {
		return LeadOrder{}, fmt.Errorf("collate: lead byte 0 must stay first")
	}
	for b, p := range parent {
		if parent[p] != p {
			return LeadOrder{}, fmt.Errorf("collate: lead %#02x has parent %#02x which is not a root", b, p)
		}
	}
	return LeadOrder{logical: logical, parent: parent}, nil
}

// Logical returns the logical lead byte for physical lead b.
func (o *LeadOrder) Logical(b byte) byte { return o.logical[b] }

// Parent returns the base lead byte owning b's group.
func (o *LeadOrder) Parent(b byte) byte { return o.parent[b] }

// Primary maps a physical primary to its logical value.
func (o *LeadOrder) Primary(p uint32) uint32 {
	return uint32(o.logical[p>>24])<<24 | p&0xFFFFFF
}

// IsIdentity reports whether no reordering or renumbering took place.
func (o LeadOrder) IsIdentity() bool {
	for i := range o.logical {
		if o.logical[i] != uint8(i) || o.parent[i] != uint8(i) {
			return false
		}
	}
	return true
}

// Bytes returns the raw tables.
func (o LeadOrder) Bytes() (logical, parent [256]byte) {
	return o.logical, o.parent
}

// sequence returns the physical lead bytes in logical order.
func (o *LeadOrder) sequence() []byte {
	seq := make([]byte, 256)
	for phys, l := range o.logical {
		seq[l] = byte(phys)
	}
	return seq
}

func (o *LeadOrder) setSequence(seq []byte) {
	for l, phys := range seq {
		o.logical[phys] = uint8(l)
	}
}

// insertAfter moves physical lead f to sort immediately after g and makes
// it part of g's group.
func (o *LeadOrder) insertAfter(g, f byte) {
	seq := o.sequence()
	out := make([]byte, 0, len(seq))
	for _, b := range seq {
		if b == f {
			continue
		}
		out = append(out, b)
		if b == g {
			out = append(out, f)
		}
	}
	o.setSequence(out)
	o.parent[f] = o.parent[g]
}
