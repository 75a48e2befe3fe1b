package collate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Elem Tests
// ============================================================

func TestElem_Level(t *testing.T) {
	tests := []struct {
		name string
		e    Elem
		want Strength
	}{
		{"primary", Elem{Primary: 0x10000100, Secondary: SecondaryCommon, Tertiary: TertiaryCommon}, Primary},
		{"mark", Elem{Secondary: 0x400, Tertiary: TertiaryCommon}, Secondary},
		{"tertiary_only", Elem{Tertiary: TertiaryCommon}, Tertiary},
		{"quaternary_only", Elem{Quaternary: 7}, Quaternary},
		{"ignorable", Elem{}, Identical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.Level())
			assert.Equal(t, tt.want == Identical, tt.e.Ignorable())
		})
	}
}

func TestElem_CaseAndRank(t *testing.T) {
	e := Elem{Primary: 0x10000100, Secondary: SecondaryCommon, Tertiary: TertiaryCommon | CaseUpper}
	assert.Equal(t, CaseUpper, e.Case())
	assert.Equal(t, tertiaryRankCommon, e.TertiaryRank())
	assert.Equal(t, byte(0x10), e.LeadByte())

	lower := e.withCase(CaseLower)
	assert.Equal(t, CaseLower, lower.Case())
	assert.Equal(t, tertiaryRankCommon, lower.TertiaryRank())

	ranked := e.withRank(0x123)
	assert.Equal(t, uint16(0x123), ranked.TertiaryRank())
	assert.Equal(t, CaseUpper, ranked.Case(), "withRank keeps the case")
}

func TestElem_String(t *testing.T) {
	v := Elem{Primary: 0x04000100, Secondary: 0x100, Tertiary: 0x400, Variable: true}
	assert.Equal(t, "[*04000100.0100.0400]", v.String())

	q := Elem{Primary: 0x10000100, Secondary: 0x100, Tertiary: 0x400, Quaternary: 0x20}
	assert.Equal(t, "[.10000100.0100.0400.0020]", q.String())

	assert.Equal(t, "[.00000000.0000.0000][*04000100.0100.0400]", FormatElems([]Elem{{}, v}))
}

func TestCloneElems(t *testing.T) {
	assert.Nil(t, cloneElems(nil))

	src := []Elem{{Primary: 1}}
	dst := cloneElems(src)
	dst[0].Primary = 2
	assert.Equal(t, uint32(1), src[0].Primary)
}

// ============================================================
// Options Tests
// ============================================================

func TestOptions_Merge(t *testing.T) {
	base := DefaultOptions
	got := base.Merge(Options{Strength: Primary, CaseFirst: UpperFirst})

	assert.Equal(t, Primary, got.Strength)
	assert.Equal(t, UpperFirst, got.CaseFirst)
	assert.Equal(t, NonIgnorable, got.Variable, "unset fields keep the base value")
	assert.Equal(t, Forward, got.L2Order)
	assert.Equal(t, Off, got.CaseLevel)
}

func TestOptions_Validate(t *testing.T) {
	require.NoError(t, Options{}.Validate())
	require.NoError(t, DefaultOptions.Validate())

	bad := []Options{
		{Strength: Identical + 1},
		{Variable: Shifted + 1},
		{L2Order: Backward + 1},
		{CaseLevel: On + 1},
		{CaseFirst: LowerFirst + 1},
	}
	for _, o := range bad {
		assert.Error(t, o.Validate(), "%+v", o)
	}
}

func TestOptions_String(t *testing.T) {
	assert.Equal(t,
		"strength=tertiary alternate=non-ignorable backwards=forward caseLevel=off caseFirst=off",
		DefaultOptions.String())
	assert.Equal(t, "strength(9)", Strength(9).String())
	assert.Equal(t, "unset", VariableWeighting(0).String())
}

func TestOptionFuncs(t *testing.T) {
	var o Options
	for _, opt := range []Option{
		WithStrength(Quaternary),
		WithVariableWeighting(Shifted),
		WithBackwardSecondary(),
		WithCaseLevel(true),
		WithCaseFirst(LowerFirst),
	} {
		opt(&o)
	}
	assert.Equal(t, Options{
		Strength:  Quaternary,
		Variable:  Shifted,
		L2Order:   Backward,
		CaseLevel: On,
		CaseFirst: LowerFirst,
	}, o)

	WithCaseLevel(false)(&o)
	assert.Equal(t, Off, o.CaseLevel)

	WithOptions(Options{Strength: Primary})(&o)
	assert.Equal(t, Primary, o.Strength)
	assert.Equal(t, Shifted, o.Variable)
}

// ============================================================
// Config Tests
// ============================================================

func TestConfig_Options(t *testing.T) {
	cfg := Config{
		Strength:  "2",
		Alternate: "shifted",
		Backwards: true,
		CaseLevel: "on",
		CaseFirst: "upper",
	}
	o, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, Options{
		Strength:  Secondary,
		Variable:  Shifted,
		L2Order:   Backward,
		CaseLevel: On,
		CaseFirst: UpperFirst,
	}, o)

	empty, err := (&Config{}).Options()
	require.NoError(t, err)
	assert.Equal(t, Options{}, empty)
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"strength", Config{Strength: "6"}},
		{"alternate", Config{Alternate: "blanked"}},
		{"case_level", Config{CaseLevel: "maybe"}},
		{"case_first", Config{CaseFirst: "title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Options()
			assert.Error(t, err)
		})
	}
}

func TestParseStrength(t *testing.T) {
	tests := []struct {
		in   string
		want Strength
	}{
		{"1", Primary},
		{"primary", Primary},
		{"2", Secondary},
		{"Tertiary", Tertiary},
		{"4", Quaternary},
		{"I", Identical},
		{"5", Identical},
		{"identical", Identical},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrength(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
