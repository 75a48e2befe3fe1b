package collate

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Reorder rewrites the lead order so that the named groups sort in the
// given order. Codes are space, punct, symbol, currency, digit, others
// (or Zzzz), ISO 15924 script codes and Go script names. Unnamed special
// groups stay first; unnamed scripts take the position of others, or go
// last when others is not named. Valid scripts without characters in the
// table are ignored.
//
// Lead bytes created by renumbering travel with their group.
func (o *LeadOrder) Reorder(codes ...string) error {
	l := getLayout()
	others, _ := l.group("Zzzz")

	named := make(map[int]bool)
	var order []int
	othersAt := -1
	for _, code := range codes {
		gi, ok, err := resolveReorderCode(l, code)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if named[gi] {
			return fmt.Errorf("collate: reorder code %q given twice", code)
		}
		named[gi] = true
		if gi == others {
			othersAt = len(order)
		}
		order = append(order, gi)
	}

	// Unnamed groups keep their physical order, so that the others group
	// stays split around Han as in the root table.
	var specials, rest []byte
	for gi, g := range l.groups {
		switch {
		case named[gi]:
		case g.special:
			specials = append(specials, g.leads...)
		default:
			rest = append(rest, g.leads...)
		}
	}
	// Lead bytes no group owns hold no base primaries.
	for b := 1; b < 256; b++ {
		lb := byte(b)
		if l.isBaseLead(lb) || o.parent[lb] != lb {
			continue
		}
		if lb < leadScriptFirst {
			specials = append(specials, lb)
		} else {
			rest = append(rest, lb)
		}
	}
	sort.Slice(specials, func(i, j int) bool { return specials[i] < specials[j] })
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	leadsOf := func(groups []int) []byte {
		var out []byte
		for _, gi := range groups {
			out = append(out, l.groups[gi].leads...)
		}
		return out
	}
	var leads []byte
	leads = append(leads, specials...)
	if othersAt >= 0 {
		leads = append(leads, leadsOf(order[:othersAt])...)
		leads = append(leads, rest...)
		leads = append(leads, leadsOf(order[othersAt:])...)
	} else {
		leads = append(leads, leadsOf(order)...)
		leads = append(leads, rest...)
	}

	// Children of a base lead keep their current relative order.
	current := o.sequence()
	children := make(map[byte][]byte)
	for _, b := range current {
		if p := o.parent[b]; p != b {
			children[p] = append(children[p], b)
		}
	}
	placed := make([]bool, 256)
	seq := make([]byte, 0, 256)
	emit := func(b byte) {
		seq = append(seq, b)
		placed[b] = true
		for _, c := range children[b] {
			seq = append(seq, c)
			placed[c] = true
		}
	}
	emit(leadIgnorable)
	for _, b := range leads {
		emit(b)
	}
	for _, b := range current {
		if !placed[b] {
			seq = append(seq, b)
			placed[b] = true
		}
	}
	o.setSequence(seq)
	return nil
}

// resolveReorderCode maps a reorder code to a layout group. ok is false
// for a valid script that has no group.
func resolveReorderCode(l *layout, code string) (gi int, ok bool, err error) {
	switch strings.ToLower(code) {
	case "space", "punct", "symbol", "currency", "digit":
		gi, ok = l.group(strings.ToLower(code))
		return gi, ok, nil
	case "others", "zzzz":
		gi, ok = l.group("Zzzz")
		return gi, ok, nil
	}
	if len(code) == 4 {
		if s, perr := language.ParseScript(code); perr == nil {
			gi, ok = l.group(s.String())
			return gi, ok, nil
		}
	}
	if gi, ok = l.group(code); ok {
		return gi, true, nil
	}
	return 0, false, fmt.Errorf("collate: unknown reorder code %q", code)
}
