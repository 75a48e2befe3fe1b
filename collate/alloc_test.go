package collate

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func primaryElem(p uint32) Elem {
	return Elem{Primary: p, Secondary: SecondaryCommon, Tertiary: TertiaryCommon}
}

// builderWith returns a builder mapping 'a', 'b', ... to elems in order.
func builderWith(t *testing.T, elems ...Elem) *Builder {
	t.Helper()
	b := NewBuilder()
	for i, e := range elems {
		require.NoError(t, b.Insert([]rune{'a' + rune(i)}, []Elem{e}))
	}
	return b
}

// ============================================================
// Neighbours
// ============================================================

func TestAllocator_NextPrev(t *testing.T) {
	b := builderWith(t, primaryElem(0x10000100), primaryElem(0x10000200))
	a := NewAllocator(b, nil)

	assert.Equal(t, uint32(0x10000200), a.Next(Primary, 0x10000100))
	assert.Equal(t, uint32(0x11000000), a.Next(Primary, 0x10000200), "end of the lead byte")
	assert.Equal(t, uint32(0x10000100), a.Prev(Primary, 0x10000200))
	assert.Equal(t, uint32(0x10000000), a.Prev(Primary, 0x10000100), "start of the lead byte")

	assert.Equal(t, uint32(0x10000), a.Next(Secondary, 0x100))
	assert.Equal(t, uint32(tertiaryRankMax)+1, a.Next(Tertiary, 0x100))
	assert.Equal(t, uint32(0), a.Prev(Secondary, 0x100))
}

func TestAllocator_ImplicitSlots(t *testing.T) {
	a := NewAllocator(NewBuilder(), nil)

	assert.Equal(t, uint32(0xE0000080), a.Next(Primary, 0xE0000000))
	assert.Equal(t, uint32(0xE0000080), a.Prev(Primary, 0xE0000100))
	assert.Equal(t, uint32(0xE4000040), a.Next(Primary, 0xE4000000))

	w, err := a.Allocate(Primary, 0xE0000000, 0xE0000080)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xE0000001), w, "implicit leads allocate with step 1")

	w, err = a.Allocate(Primary, w, 0xE0000080)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xE0000002), w)
}

// ============================================================
// Allocation
// ============================================================

func TestAllocator_StepCaps(t *testing.T) {
	a := NewAllocator(NewBuilder(), nil)
	tests := []struct {
		level     Strength
		low, high uint32
		want      uint32
	}{
		{Primary, 0x10000100, 0x10000200, 0x10000120},
		{Primary, 0x10000100, 0x10000110, 0x10000108},
		{Secondary, 0x100, 0x400, 0x110},
		{Tertiary, 0x100, 0x200, 0x108},
		{Quaternary, 0, 0x10000, 0x100},
		{Quaternary, 0x10, 0x14, 0x12},
	}
	for _, tt := range tests {
		w, err := a.Allocate(tt.level, tt.low, tt.high)
		require.NoError(t, err)
		assert.Equal(t, tt.want, w, "%s (%#x, %#x)", tt.level, tt.low, tt.high)
	}
}

func TestAllocator_InvalidRequests(t *testing.T) {
	a := NewAllocator(NewBuilder(), nil)

	_, err := a.Allocate(Identical, 0, 10)
	assert.Error(t, err)
	_, err = a.Allocate(Secondary, 0x200, 0x200)
	assert.Error(t, err)
	_, err = a.Allocate(Secondary, 0x300, 0x200)
	assert.Error(t, err)
}

func TestAllocator_Renumber(t *testing.T) {
	b := builderWith(t, primaryElem(0x10000100), primaryElem(0x10000101), primaryElem(0x10000102))
	logger, hook := test.NewNullLogger()
	a := NewAllocator(b, logger)

	held := []Elem{primaryElem(0x10000101)}
	var remaps int
	a.OnRemap = func(remap func(Elem) Elem) {
		remaps++
		for i := range held {
			held[i] = remap(held[i])
		}
	}

	w, err := a.Allocate(Primary, 0x10000100, 0x10000101)
	require.NoError(t, err)
	assert.Equal(t, 1, remaps)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "renumbered weights", hook.LastEntry().Message)

	eb, _ := b.Get([]rune("b"))
	ec, _ := b.Get([]rune("c"))
	assert.Greater(t, w, uint32(0x10000100))
	assert.Greater(t, eb[0].Primary, w)
	assert.Greater(t, ec[0].Primary, eb[0].Primary)
	assert.Equal(t, byte(0x10), eb[0].LeadByte())
	assert.Equal(t, eb[0], held[0], "held elements are remapped")

	// Other fields survive the rewrite.
	assert.Equal(t, SecondaryCommon, eb[0].Secondary)
	assert.Equal(t, TertiaryCommon, eb[0].Tertiary)
}

func TestAllocator_RenumberTertiaryKeepsCase(t *testing.T) {
	upper := Elem{Primary: 0x10000100, Secondary: SecondaryCommon, Tertiary: 0x181<<2 | CaseUpper}
	lower := Elem{Primary: 0x10000100, Secondary: SecondaryCommon, Tertiary: 0x180 << 2}
	b := builderWith(t, lower, upper)
	a := NewAllocator(b, nil)

	w, err := a.Allocate(Tertiary, 0x180, 0x181)
	require.NoError(t, err)

	moved, _ := b.Get([]rune("b"))
	assert.Equal(t, CaseUpper, moved[0].Case())
	assert.Greater(t, uint32(moved[0].TertiaryRank()), w)
	assert.Greater(t, w, uint32(0x180))
}

func TestAllocator_SplitLead(t *testing.T) {
	b := builderWith(t, primaryElem(0x10FFFFFE), primaryElem(0x10FFFFFF))
	logger, hook := test.NewNullLogger()
	a := NewAllocator(b, logger)

	w, err := a.Allocate(Primary, 0x10FFFFFE, 0x10FFFFFF)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10FFFFFF), w)
	assert.Equal(t, "split lead byte", hook.LastEntry().Message)

	moved, _ := b.Get([]rune("b"))
	assert.Equal(t, uint32(0xFE000100), moved[0].Primary)
	assert.Equal(t, byte(0x10), b.leads.Parent(0xFE))
	assert.Equal(t, b.leads.Logical(0x10)+1, b.leads.Logical(0xFE))
	assert.Less(t, b.leads.Primary(w), b.leads.Primary(moved[0].Primary))
	assert.Less(t, b.leads.Primary(moved[0].Primary), b.leads.Primary(0x11000100))
}

func TestAllocator_RenumberDownward(t *testing.T) {
	b := builderWith(t, Elem{Secondary: 0xFFFE}, Elem{Secondary: 0xFFFF})
	logger, hook := test.NewNullLogger()
	a := NewAllocator(b, logger)

	w, err := a.Allocate(Secondary, 0xFFFE, 0xFFFF)
	require.NoError(t, err)
	assert.Equal(t, "renumbered weights", hook.LastEntry().Message)

	ea, _ := b.Get([]rune("a"))
	eb, _ := b.Get([]rune("b"))
	assert.Less(t, uint32(ea[0].Secondary), w)
	assert.Less(t, w, uint32(eb[0].Secondary))
}

func TestAllocator_RenumberStopsAtPinned(t *testing.T) {
	// Tertiary ranks 0x100 (pinned), 0x3FFD, 0x3FFE, 0x3FFF.
	b := builderWith(t,
		primaryElem(0x10000100),
		Elem{Primary: 0x10000200, Tertiary: 0x3FFD << 2},
		Elem{Primary: 0x10000300, Tertiary: 0x3FFE << 2},
		Elem{Primary: 0x10000400, Tertiary: 0x3FFF << 2})
	a := NewAllocator(b, nil)

	w, err := a.Allocate(Tertiary, 0x3FFE, 0x3FFF)
	require.NoError(t, err)

	var ranks []uint32
	for _, k := range []string{"a", "b", "c", "d"} {
		e, _ := b.Get([]rune(k))
		ranks = append(ranks, uint32(e[0].TertiaryRank()))
	}
	assert.Equal(t, uint32(tertiaryRankCommon), ranks[0], "pinned weight stays")
	assert.Less(t, ranks[0], ranks[1])
	assert.Less(t, ranks[1], ranks[2])
	assert.Less(t, ranks[2], w)
	assert.Less(t, w, ranks[3])
}

func TestAllocator_Exhausted(t *testing.T) {
	t.Run("below_pinned_common", func(t *testing.T) {
		// Every secondary weight below the common weight is in use.
		elems := []Elem{primaryElem(0x10000100)}
		for s := uint16(1); s < SecondaryCommon; s++ {
			elems = append(elems, Elem{Secondary: s})
		}
		b := builderWith(t, elems...)
		a := NewAllocator(b, nil)
		_, err := a.Allocate(Secondary, 0xFF, 0x100)
		var exh *WeightSpaceExhaustedError
		require.True(t, errors.As(err, &exh), "got %v", err)
		assert.Equal(t, Secondary, exh.Level)
		assert.Equal(t, "collate: secondary weight space exhausted", exh.Error())

		e, _ := b.Get([]rune{'a' + 0xFF})
		assert.Equal(t, uint16(0xFF), e[0].Secondary, "failed renumbering leaves weights alone")
	})

	t.Run("implicit_slot", func(t *testing.T) {
		a := NewAllocator(NewBuilder(), nil)
		_, err := a.Allocate(Primary, 0xE000007F, 0xE0000080)
		var exh *WeightSpaceExhaustedError
		assert.True(t, errors.As(err, &exh), "got %v", err)
	})
}

func TestWeightSpace(t *testing.T) {
	var s weightSpace
	for _, w := range []uint32{30, 10, 20, 10} {
		s.insert(w)
	}
	assert.Equal(t, []uint32{10, 20, 30}, s.ws)
	assert.True(t, s.contains(20))
	assert.False(t, s.contains(25))

	n, ok := s.above(20)
	assert.True(t, ok)
	assert.Equal(t, uint32(30), n)
	_, ok = s.above(30)
	assert.False(t, ok)

	p, ok := s.below(20)
	assert.True(t, ok)
	assert.Equal(t, uint32(10), p)
	_, ok = s.below(10)
	assert.False(t, ok)
}
