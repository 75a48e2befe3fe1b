package collate

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

// maxStep caps the distance between a new weight and its lower neighbour,
// so that chains of relations leave room behind them.
var maxStep = [...]uint32{
	Primary:    0x20,
	Secondary:  0x10,
	Tertiary:   0x08,
	Quaternary: 0x100,
}

// weightSpace is the sorted set of distinct non-zero weights in use at one
// level.
type weightSpace struct {
	ws []uint32
}

func (s *weightSpace) search(w uint32) int {
	return sort.Search(len(s.ws), func(i int) bool { return s.ws[i] >= w })
}

func (s *weightSpace) insert(w uint32) {
	i := s.search(w)
	if i < len(s.ws) && s.ws[i] == w {
		return
	}
	s.ws = append(s.ws, 0)
	copy(s.ws[i+1:], s.ws[i:])
	s.ws[i] = w
}

func (s *weightSpace) contains(w uint32) bool {
	i := s.search(w)
	return i < len(s.ws) && s.ws[i] == w
}

// above returns the smallest weight greater than w.
func (s *weightSpace) above(w uint32) (uint32, bool) {
	i := s.search(w + 1)
	if i < len(s.ws) {
		return s.ws[i], true
	}
	return 0, false
}

// below returns the largest weight less than w.
func (s *weightSpace) below(w uint32) (uint32, bool) {
	i := s.search(w)
	if i > 0 {
		return s.ws[i-1], true
	}
	return 0, false
}

// Allocator hands out weights between two neighbours for the tailoring
// compiler. It tracks every weight of its builder and renumbers runs of
// existing weights when a gap is too narrow; renumbering rewrites the
// builder in place and preserves the relative order of all weights.
//
// Primary weights are allocated inside the lead byte of the lower
// neighbour. A lead byte that runs full is split: a free physical lead is
// spliced into the lead order right after it and the upper part of the
// group moves there.
type Allocator struct {
	b      *Builder
	log    logrus.FieldLogger
	spaces [Quaternary + 1]weightSpace

	// OnRemap, if set, is called after a renumbering with the function
	// that maps old elements to new ones, so that callers can update
	// element slices they hold outside the builder.
	OnRemap func(remap func(Elem) Elem)
}

// NewAllocator returns an allocator over the weights currently in b. A nil
// logger discards renumbering events.
func NewAllocator(b *Builder, log logrus.FieldLogger) *Allocator {
	if log == nil {
		log = discardLogger()
	}
	a := &Allocator{b: b, log: log}
	b.each(func(_ []rune, elems []Elem) {
		for _, e := range elems {
			a.ObserveElem(e)
		}
	})
	return a
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Observe records w as in use at level.
func (a *Allocator) Observe(level Strength, w uint32) {
	if w == 0 || level < Primary || level > Quaternary {
		return
	}
	a.spaces[level].insert(w)
}

// ObserveElem records every weight of e.
func (a *Allocator) ObserveElem(e Elem) {
	a.Observe(Primary, e.Primary)
	a.Observe(Secondary, uint32(e.Secondary))
	a.Observe(Tertiary, uint32(e.TertiaryRank()))
	a.Observe(Quaternary, uint32(e.Quaternary))
}

// domain returns the exclusive bounds of the weight space holding w.
func domain(level Strength, w uint32) (lo, hi uint32) {
	switch level {
	case Primary:
		lo = w &^ 0xFFFFFF
		if lo == 0xFF000000 {
			return lo, 0xFFFFFFFF
		}
		return lo, lo + 1<<24
	case Tertiary:
		return 0, uint32(tertiaryRankMax) + 1
	default:
		return 0, 0x10000
	}
}

// limit is the first weight above low that can never be moved: the end of
// the domain, or the next implicit slot under an implicit lead byte.
func limit(level Strength, low uint32) uint32 {
	_, hi := domain(level, low)
	if level == Primary {
		if shift, ok := implicitShift(byte(low >> 24)); ok {
			if slot := low&^(1<<shift-1) + 1<<shift; slot < hi {
				return slot
			}
		}
	}
	return hi
}

// pinned reports weights that other code relies on and renumbering must
// leave alone.
func pinned(level Strength, w uint32) bool {
	switch level {
	case Primary:
		if shift, ok := implicitShift(byte(w >> 24)); ok {
			return w&(1<<shift-1) == 0
		}
	case Secondary:
		return w == uint32(SecondaryCommon)
	case Tertiary:
		return w == uint32(tertiaryRankCommon)
	}
	return false
}

func stepFor(level Strength, low uint32) uint32 {
	if level == Primary {
		if _, ok := implicitShift(byte(low >> 24)); ok {
			return 1
		}
	}
	return maxStep[level]
}

// Next returns the smallest weight above w at level, or the exclusive
// upper bound of w's space. Under implicit lead bytes the next implicit
// slot counts as a neighbour.
func (a *Allocator) Next(level Strength, w uint32) uint32 {
	hi := limit(level, w)
	if n, ok := a.spaces[level].above(w); ok && n < hi {
		hi = n
	}
	return hi
}

// Prev returns the largest weight below w at level, or the exclusive lower
// bound of w's space.
func (a *Allocator) Prev(level Strength, w uint32) uint32 {
	lo, _ := domain(level, w)
	if p, ok := a.spaces[level].below(w); ok && p > lo {
		lo = p
	}
	if level == Primary && w > lo {
		if shift, ok := implicitShift(byte(w >> 24)); ok {
			if slot := (w - 1) &^ (1<<shift - 1); slot > lo {
				lo = slot
			}
		}
	}
	return lo
}

// Allocate returns a new weight w with low < w < high and records it.
// When the gap is too narrow the weights around it are renumbered first.
func (a *Allocator) Allocate(level Strength, low, high uint32) (uint32, error) {
	if level < Primary || level > Quaternary {
		return 0, fmt.Errorf("collate: cannot allocate %s weights", level)
	}
	if high <= low {
		return 0, fmt.Errorf("collate: empty %s interval (%#x, %#x)", level, low, high)
	}
	if high-low < 2 {
		var err error
		if low, high, err = a.renumber(level, low, high); err != nil {
			return 0, err
		}
	}
	step := (high - low) / 2
	if m := stepFor(level, low); step > m {
		step = m
	}
	w := low + step
	a.Observe(level, w)
	return w, nil
}

// movable reports whether w is a weight in use that renumbering may move
// within (floor, end).
func (a *Allocator) movable(level Strength, w, floor, end uint32) bool {
	return w > floor && w < end && !pinned(level, w) && a.spaces[level].contains(w)
}

// renumber makes room between the adjacent weights low and high. It grows
// a run of movable weights upwards from high and, once that side is
// blocked, downwards from low, until the run can be spread over the gap it
// spans. A primary run blocked above splits the lead byte first. The run
// is then respread evenly and the interval to allocate in is returned.
func (a *Allocator) renumber(level Strength, low, high uint32) (uint32, uint32, error) {
	sp := &a.spaces[level]
	floor, _ := domain(level, low)
	end := limit(level, low)
	want := stepFor(level, low)
	if want < 2 {
		want = 2
	}

	var down, up []uint32
	lower, upper := low, high
	fits := func(step uint32) bool {
		return uint64(upper-lower) >= uint64(step)*uint64(len(down)+len(up)+2)
	}
	splitTried := level != Primary
	for !fits(want) {
		if a.movable(level, upper, floor, end) {
			up = append(up, upper)
			if n, ok := sp.above(upper); ok && n < end {
				upper = n
			} else {
				upper = end
			}
			continue
		}
		if level == Primary && fits(2) {
			break
		}
		if !splitTried {
			splitTried = true
			lo, hi, err := a.splitLead(low, high)
			var exh *WeightSpaceExhaustedError
			if err == nil || !errors.As(err, &exh) {
				return lo, hi, err
			}
		}
		if a.movable(level, lower, floor, end) {
			down = append(down, lower)
			if p, ok := sp.below(lower); ok && p > floor {
				lower = p
			} else {
				lower = floor
			}
			continue
		}
		if fits(2) {
			break
		}
		return 0, 0, &WeightSpaceExhaustedError{Level: level}
	}

	// run holds the moved weights in ascending order; the new weight takes
	// the slot between down and up.
	run := make([]uint32, 0, len(down)+len(up))
	for i := len(down) - 1; i >= 0; i-- {
		run = append(run, down[i])
	}
	run = append(run, up...)
	step := (upper - lower) / uint32(len(run)+2)
	if step > want {
		step = want
	}
	mapping := make(map[uint32]uint32, len(run))
	first := sp.search(run[0])
	for k, w := range run {
		slot := k + 1
		if k >= len(down) {
			slot++
		}
		nw := lower + step*uint32(slot)
		mapping[w] = nw
		sp.ws[first+k] = nw
	}
	a.apply(level, mapping)
	a.log.WithFields(logrus.Fields{
		"level": level.String(),
		"low":   fmt.Sprintf("%#x", lower),
		"count": len(run),
		"step":  step,
	}).Info("renumbered weights")
	newLow := lower + step*uint32(len(down))
	return newLow, newLow + 2*step, nil
}

// splitLead moves the primaries of low's lead byte from high upwards into
// a free lead byte that sorts directly after it.
func (a *Allocator) splitLead(low, high uint32) (uint32, uint32, error) {
	lead := byte(low >> 24)
	if _, ok := implicitShift(lead); ok {
		return 0, 0, &WeightSpaceExhaustedError{Level: Primary}
	}
	f, ok := a.freeLead()
	if !ok {
		return 0, 0, &WeightSpaceExhaustedError{Level: Primary}
	}

	sp := &a.spaces[Primary]
	_, end := domain(Primary, low)
	var run []uint32
	for i := sp.search(high); i < len(sp.ws) && sp.ws[i] < end; i++ {
		run = append(run, sp.ws[i])
	}
	if uint64(len(run)+1)*primaryStep > 0xFFFFFF {
		return 0, 0, &WeightSpaceExhaustedError{Level: Primary}
	}
	mapping := make(map[uint32]uint32, len(run))
	for k, w := range run {
		mapping[w] = uint32(f)<<24 | uint32(k+1)*primaryStep
	}
	a.apply(Primary, mapping)
	a.b.leads.insertAfter(lead, f)
	a.rebuild(Primary)
	a.log.WithFields(logrus.Fields{
		"lead":    fmt.Sprintf("%#02x", lead),
		"newLead": fmt.Sprintf("%#02x", f),
		"moved":   len(run),
	}).Info("split lead byte")

	if end-low >= 2 {
		return low, end, nil
	}
	if len(run) > 0 {
		return uint32(f) << 24, mapping[run[0]], nil
	}
	return uint32(f) << 24, uint32(f)<<24 | primaryStep, nil
}

// freeLead returns a physical lead byte that no group owns and no primary
// uses.
func (a *Allocator) freeLead() (byte, bool) {
	var used [256]bool
	for _, w := range a.spaces[Primary].ws {
		used[w>>24] = true
	}
	l := getLayout()
	for b := 0xFE; b > 0; b-- {
		lb := byte(b)
		if used[lb] || l.isBaseLead(lb) || a.b.leads.Parent(lb) != lb {
			continue
		}
		if _, ok := implicitShift(lb); ok {
			continue
		}
		return lb, true
	}
	return 0, false
}

// rebuild recomputes a weight space from the builder.
func (a *Allocator) rebuild(level Strength) {
	a.spaces[level] = weightSpace{}
	a.b.each(func(_ []rune, elems []Elem) {
		for _, e := range elems {
			switch level {
			case Primary:
				a.Observe(level, e.Primary)
			case Secondary:
				a.Observe(level, uint32(e.Secondary))
			case Tertiary:
				a.Observe(level, uint32(e.TertiaryRank()))
			case Quaternary:
				a.Observe(level, uint32(e.Quaternary))
			}
		}
	})
}

// apply rewrites every element of the builder through mapping.
func (a *Allocator) apply(level Strength, mapping map[uint32]uint32) {
	remap := func(e Elem) Elem {
		switch level {
		case Primary:
			if w, ok := mapping[e.Primary]; ok {
				e.Primary = w
			}
		case Secondary:
			if w, ok := mapping[uint32(e.Secondary)]; ok {
				e.Secondary = uint16(w)
			}
		case Tertiary:
			if w, ok := mapping[uint32(e.TertiaryRank())]; ok && e.Tertiary != 0 {
				e = e.withRank(uint16(w))
			}
		case Quaternary:
			if w, ok := mapping[uint32(e.Quaternary)]; ok {
				e.Quaternary = uint16(w)
			}
		}
		return e
	}
	a.b.each(func(_ []rune, elems []Elem) {
		for i := range elems {
			elems[i] = remap(elems[i])
		}
	})
	if a.OnRemap != nil {
		a.OnRemap(remap)
	}
}
