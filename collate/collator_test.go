package collate

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample covers letters, case, marks, contractions, variables, digits,
// scripts, implicits and ignorables.
var sample = []string{
	"", "a", "A", "b", "B", "ab", "a b", "a-b", "ab-", "-ab",
	"á", "Á", "à", "ä", "ae", "æ", "cote", "coté", "côte", "côté",
	"ch", "c", "h", "1", "١", "12", "2", "$", "+", " ", "-",
	"α", "Α", "а", "一", "丁", "가", "ａ", "Ａ", "a\u0001",
	"\u0301", "e\u0323\u0301", "\U0001F600", "resume", "résumé", "Resume",
}

func optionMatrix() []Options {
	var out []Options
	for s := Primary; s <= Identical; s++ {
		for _, v := range []VariableWeighting{NonIgnorable, Shifted} {
			for _, l2 := range []L2Order{Forward, Backward} {
				for _, cl := range []Switch{Off, On} {
					for _, cf := range []CaseFirst{CaseFirstOff, UpperFirst, LowerFirst} {
						out = append(out, Options{Strength: s, Variable: v, L2Order: l2, CaseLevel: cl, CaseFirst: cf})
					}
				}
			}
		}
	}
	return out
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// ============================================================
// Ordering Properties
// ============================================================

func TestCollator_KeyMatchesCompare(t *testing.T) {
	for _, o := range optionMatrix() {
		c := New(nil, WithOptions(o))
		keys := make([][]byte, len(sample))
		for i, s := range sample {
			keys[i] = c.KeyString(s)
		}
		for i, a := range sample {
			for j, b := range sample {
				want := c.CompareString(a, b)
				if got := sign(bytes.Compare(keys[i], keys[j])); got != want {
					t.Fatalf("%s: key order of %q, %q is %d, Compare gives %d", o, a, b, got, want)
				}
			}
		}
	}
}

func TestCollator_StrictWeakOrder(t *testing.T) {
	for _, o := range []Options{
		DefaultOptions,
		{Strength: Quaternary, Variable: Shifted},
		{Strength: Secondary, L2Order: Backward},
		{Strength: Primary, CaseLevel: On},
		{Strength: Identical, CaseFirst: UpperFirst},
	} {
		t.Run(o.String(), func(t *testing.T) {
			c := New(nil, WithOptions(o))
			n := len(sample)
			cmp := make([][]int, n)
			for i := range cmp {
				cmp[i] = make([]int, n)
				for j := range cmp[i] {
					cmp[i][j] = c.CompareString(sample[i], sample[j])
				}
			}
			for i := 0; i < n; i++ {
				require.Equal(t, 0, cmp[i][i], "irreflexive: %q", sample[i])
				for j := 0; j < n; j++ {
					require.Equal(t, -cmp[j][i], cmp[i][j], "antisymmetric: %q %q", sample[i], sample[j])
					for k := 0; k < n; k++ {
						if cmp[i][j] <= 0 && cmp[j][k] <= 0 {
							want := -1
							if cmp[i][j] == 0 && cmp[j][k] == 0 {
								want = 0
							}
							require.Equal(t, want, cmp[i][k], "transitive: %q %q %q", sample[i], sample[j], sample[k])
						}
					}
				}
			}
		})
	}
}

func TestCollator_StrengthMonotonic(t *testing.T) {
	base := []Options{
		{},
		{Variable: Shifted},
		{L2Order: Backward, CaseFirst: UpperFirst},
	}
	for _, o := range base {
		var cs []*Collator
		for s := Primary; s <= Identical; s++ {
			o.Strength = s
			cs = append(cs, New(nil, WithOptions(o)))
		}
		for _, a := range sample {
			for _, b := range sample {
				for i, c := range cs {
					r := c.CompareString(a, b)
					if r == 0 {
						continue
					}
					for _, finer := range cs[i+1:] {
						require.Equal(t, r, finer.CompareString(a, b),
							"%q vs %q decided at %s, reversed at %s", a, b, c.Options().Strength, finer.Options().Strength)
					}
					break
				}
			}
		}
	}
}

// The case level follows the configured strength, so at primary strength
// it outranks accents.
func TestCollator_CaseLevelPlacement(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		a, b string
		want int
	}{
		{"primary_case_decides", Options{Strength: Primary, CaseLevel: On}, "a", "A", -1},
		{"primary_accent_ignored", Options{Strength: Primary, CaseLevel: On}, "a", "á", 0},
		{"primary_case_over_accent", Options{Strength: Primary, CaseLevel: On}, "A", "á", 1},
		{"primary_upper_first", Options{Strength: Primary, CaseLevel: On, CaseFirst: UpperFirst}, "A", "a", -1},
		{"primary_without_case_level", Options{Strength: Primary}, "a", "A", 0},
		{"secondary_accent_first", Options{Strength: Secondary, CaseLevel: On}, "A", "á", -1},
		{"secondary_case_after_accent", Options{Strength: Secondary, CaseLevel: On}, "á", "Á", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(nil, WithOptions(tt.opts))
			assert.Equal(t, tt.want, c.CompareString(tt.a, tt.b))
			assert.Equal(t, tt.want, sign(bytes.Compare(c.KeyString(tt.a), c.KeyString(tt.b))))
		})
	}
}

func TestCollator_Deterministic(t *testing.T) {
	c1 := New(nil, WithVariableWeighting(Shifted), WithStrength(Identical))
	c2 := New(nil, WithVariableWeighting(Shifted), WithStrength(Identical))
	for _, s := range sample {
		k := c1.KeyString(s)
		assert.Equal(t, k, c1.KeyString(s), s)
		assert.Equal(t, k, c2.KeyString(s), s)
	}
}

// ============================================================
// Levels
// ============================================================

func TestCollator_Strengths(t *testing.T) {
	tests := []struct {
		a, b     string
		strength Strength
		want     int
	}{
		{"a", "b", Primary, -1},
		{"a", "á", Primary, 0},
		{"a", "á", Secondary, -1},
		{"a", "A", Secondary, 0},
		{"a", "A", Tertiary, -1},
		{"resume", "Résumé", Primary, 0},
		{"résumé", "Resume", Secondary, 1},
		{"1", "١", Quaternary, 0},
		{"1", "١", Identical, -1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s_%s", tt.a, tt.b, tt.strength), func(t *testing.T) {
			c := New(nil, WithStrength(tt.strength))
			assert.Equal(t, tt.want, c.CompareString(tt.a, tt.b))
			assert.Equal(t, -tt.want, c.CompareString(tt.b, tt.a))
		})
	}
}

func TestCollator_Shifted(t *testing.T) {
	nonIgnorable := New(nil)
	assert.Equal(t, -1, nonIgnorable.CompareString("a-b", "ab"))

	shifted := New(nil, WithVariableWeighting(Shifted))
	assert.Equal(t, 0, shifted.CompareString("a-b", "ab"))
	assert.Equal(t, 0, shifted.CompareString("a b", "a-b"))

	q := New(nil, WithVariableWeighting(Shifted), WithStrength(Quaternary))
	assert.Equal(t, -1, q.CompareString("a-b", "ab"))
	assert.Equal(t, -1, q.CompareString("a b", "a-b"), "space sorts before punctuation at L4")

	// A mark after a variable element is ignored with it.
	assert.Equal(t, 0, q.CompareString("a-\u0301b", "a-b"))
	assert.Equal(t, 1, New(nil, WithVariableWeighting(Shifted), WithStrength(Identical)).CompareString("a-\u0301b", "a-b"))
}

func TestCollator_BackwardSecondary(t *testing.T) {
	words := []string{"côté", "cote", "côte", "coté"}

	forward := append([]string(nil), words...)
	New(nil, WithStrength(Secondary)).Sort(forward)
	assert.Equal(t, []string{"cote", "coté", "côte", "côté"}, forward)

	backward := append([]string(nil), words...)
	New(nil, WithStrength(Secondary), WithBackwardSecondary()).Sort(backward)
	assert.Equal(t, []string{"cote", "côte", "coté", "côté"}, backward)
}

func TestCollator_CaseFirst(t *testing.T) {
	tests := []struct {
		cf   CaseFirst
		want int
	}{
		{CaseFirstOff, -1},
		{LowerFirst, -1},
		{UpperFirst, 1},
	}
	for _, tt := range tests {
		t.Run(tt.cf.String(), func(t *testing.T) {
			c := New(nil, WithCaseFirst(tt.cf))
			assert.Equal(t, tt.want, c.CompareString("a", "A"))

			// Unrelated pairs keep their order.
			assert.Equal(t, -1, c.CompareString("a", "b"))
			assert.Equal(t, -1, c.CompareString("A", "b"))
			assert.Equal(t, -1, c.CompareString("a", "á"))
			assert.Equal(t, 1, c.CompareString("ab", "Aa"))
		})
	}
}

func TestCollator_CaseLevel(t *testing.T) {
	primary := New(nil, WithStrength(Primary))
	assert.Equal(t, 0, primary.CompareString("a", "A"))

	withCase := New(nil, WithStrength(Primary), WithCaseLevel(true))
	assert.Equal(t, -1, withCase.CompareString("a", "A"))
	assert.Equal(t, 0, withCase.CompareString("a", "á"), "accents stay ignored")

	upper := New(nil, WithStrength(Primary), WithCaseLevel(true), WithCaseFirst(UpperFirst))
	assert.Equal(t, 1, upper.CompareString("a", "A"))
}

func TestCollator_TableSettings(t *testing.T) {
	b := DefaultTable().Builder()
	require.NoError(t, b.SetSettings(Options{Strength: Primary}))
	tbl, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, Primary, New(tbl).Options().Strength)
	assert.Equal(t, 0, New(tbl).CompareString("a", "Á"))
	assert.Equal(t, -1, New(tbl, WithStrength(Tertiary)).CompareString("a", "A"), "options override table settings")
	assert.Equal(t, NonIgnorable, New(tbl).Options().Variable, "unset fields take the defaults")
}

// ============================================================
// Keys
// ============================================================

func TestCollator_KeyLayout(t *testing.T) {
	c := New(nil)
	assert.Equal(t, []byte{levelSeparator, levelSeparator}, c.Key(nil))

	k := c.KeyString("a")
	assert.Len(t, k, widthPrimary+1+widthSecondary+1+widthTertiary)
	for i, b := range k {
		if i == widthPrimary || i == widthPrimary+1+widthSecondary {
			assert.Equal(t, levelSeparator, b)
		} else {
			assert.NotEqual(t, levelSeparator, b, "weight byte %d", i)
		}
	}

	prefix := []byte("prefix")
	out := c.AppendKey(prefix, []rune("a"))
	assert.Equal(t, append([]byte("prefix"), k...), out)
}

func TestAppendWeight(t *testing.T) {
	assert.Equal(t, []byte{1, 1, 1}, appendWeight(nil, 0, 3))
	assert.Equal(t, []byte{1, 2, 1}, appendWeight(nil, 255, 3))
	assert.Equal(t, []byte{1, 1, 255}, appendWeight(nil, 254, 3))

	for _, w := range []uint32{0, 1, 254, 255, 256, 0xFFFF, 0x10FFFF, 0xFFFFFFFF} {
		for _, v := range []uint32{w + 1, w * 2} {
			if v <= w {
				continue
			}
			a, b := appendWeight(nil, w, 5), appendWeight(nil, v, 5)
			assert.Equal(t, -1, bytes.Compare(a, b), "%#x < %#x", w, v)
		}
	}
}

func TestCollator_Sort(t *testing.T) {
	strs := []string{"b", "A", "a", "á", "B", "a"}
	New(nil).Sort(strs)
	assert.Equal(t, []string{"a", "a", "A", "á", "b", "B"}, strs)

	stable := []string{"a", "A", "á"}
	New(nil, WithStrength(Primary)).Sort(stable)
	assert.Equal(t, []string{"a", "A", "á"}, stable, "equal strings keep their input order")
}

// ============================================================
// Benchmarks
// ============================================================

func BenchmarkKeyString(b *testing.B) {
	c := New(nil)
	c.KeyString("warmup")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.KeyString("Résumé of the naïve café owner")
	}
}

func BenchmarkCompareString(b *testing.B) {
	c := New(nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.CompareString("Résumé of the naïve café owner", "Résumé of the naive cafe owner")
	}
}

func BenchmarkSort(b *testing.B) {
	c := New(nil)
	strs := make([]string, len(sample))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(strs, sample)
		c.Sort(strs)
	}
}
