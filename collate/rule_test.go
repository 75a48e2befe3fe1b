package collate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Lexer Tests
// ============================================================

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestRuleLexer_Basic(t *testing.T) {
	tokens, err := NewRuleLexer("&a < b <<< B").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []TokenType{
		TokenReset, TokenCodePoint, TokenRelation, TokenCodePoint, TokenRelation, TokenCodePoint, TokenEOF,
	}, tokenTypes(tokens))
	assert.Equal(t, Primary, tokens[2].Strength)
	assert.Equal(t, Tertiary, tokens[4].Strength)
	assert.Equal(t, 'B', tokens[5].Rune)
	assert.Equal(t, Position{Line: 1, Column: 12, Offset: 11}, tokens[5].Pos)
}

func TestRuleLexer_Relations(t *testing.T) {
	tests := []struct {
		in   string
		want Strength
		star bool
	}{
		{"<", Primary, false},
		{"<<", Secondary, false},
		{"<<<", Tertiary, false},
		{"<<<<", Quaternary, false},
		{"=", Identical, false},
		{"<*", Primary, true},
		{"<<<*", Tertiary, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tokens, err := NewRuleLexer(tt.in).Tokenize()
			require.NoError(t, err)
			require.Equal(t, TokenRelation, tokens[0].Type)
			assert.Equal(t, tt.want, tokens[0].Strength)
			assert.Equal(t, tt.star, tokens[0].Star)
			assert.Equal(t, tt.in, tokens[0].Value)
		})
	}

	_, err := NewRuleLexer("<<<<<").Tokenize()
	assert.Error(t, err)
}

func TestRuleLexer_Escapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []rune
	}{
		{"u4", `\u00E9`, []rune{0xE9}},
		{"U8", `\U0001F600`, []rune{0x1F600}},
		{"x2", `\x41`, []rune{'A'}},
		{"x_braces", `\x{1F600}`, []rune{0x1F600}},
		{"octal", `\o101`, []rune{'A'}},
		{"newline", `\n`, []rune{'\n'}},
		{"literal", `\&`, []rune{'&'}},
		{"quoted_run", `'a b'`, []rune{'a', ' ', 'b'}},
		{"quoted_quote", `''`, []rune{'\''}},
		{"escaped_quote_in_run", `'it''s'`, []rune{'i', 't', '\'', 's'}},
		{"escape_in_quotes", `'\u0301'`, []rune{0x301}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewRuleLexer(tt.in).Tokenize()
			require.NoError(t, err)
			var got []rune
			for _, tok := range tokens {
				if tok.Type == TokenCodePoint {
					got = append(got, tok.Rune)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleLexer_CommentsAndLines(t *testing.T) {
	tokens, err := NewRuleLexer("# comment\n&a # trailing\n  < b").Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 5)
	assert.Equal(t, 2, tokens[0].Pos.Line)
	assert.Equal(t, Position{Line: 3, Column: 3, Offset: 26}, tokens[2].Pos)
}

func TestRuleLexer_Brackets(t *testing.T) {
	tokens, err := NewRuleLexer("[reorder Grek Latn][suppressContractions [a-c]]").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []TokenType{
		TokenLBracket, TokenIdent, TokenIdent, TokenIdent, TokenRBracket,
		TokenLBracket, TokenIdent, TokenLBracket, TokenCodePoint, TokenDash, TokenCodePoint, TokenRBracket, TokenRBracket,
		TokenEOF,
	}, tokenTypes(tokens))
	assert.Equal(t, "Grek", tokens[2].Value)
}

func TestRuleLexer_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unterminated_bracket", "[caseFirst upper"},
		{"unbalanced_bracket", "]"},
		{"unterminated_quote", "'abc"},
		{"empty_quote_run", "'"},
		{"short_hex", `\u12`},
		{"surrogate_escape", `\uD800`},
		{"bad_option_char", "[caseFirst !]"},
		{"trailing_backslash", `\`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewRuleLexer(tt.in).Tokenize()
			require.Error(t, err)
			var syn *RuleSyntaxError
			require.True(t, errors.As(err, &syn))
			assert.Equal(t, TokenError, tokens[len(tokens)-1].Type)
		})
	}
}

// ============================================================
// Parser Tests
// ============================================================

func TestParseRules_Chain(t *testing.T) {
	res, err := ParseRules("&A < á <<< Á < ä <<< Ä")
	require.NoError(t, err)
	require.Len(t, res.Statements, 1)

	r := res.Statements[0].(*Rule)
	assert.Equal(t, []rune("A"), r.Anchor)
	assert.Equal(t, LogicalNone, r.Logical)
	require.Len(t, r.Relations, 4)
	assert.Equal(t, Primary, r.Relations[0].Strength)
	assert.Equal(t, []rune("á"), r.Relations[0].Key)
	assert.Equal(t, Tertiary, r.Relations[3].Strength)
}

func TestParseRules_Contraction(t *testing.T) {
	res, err := ParseRules("&c < ch <<< Ch <<< CH")
	require.NoError(t, err)
	r := res.Statements[0].(*Rule)
	assert.Equal(t, []rune("ch"), r.Relations[0].Key)
	assert.Equal(t, []rune("CH"), r.Relations[2].Key)
}

func TestParseRules_PrefixAndExtension(t *testing.T) {
	res, err := ParseRules("&a < b|c < æ/e")
	require.NoError(t, err)
	r := res.Statements[0].(*Rule)
	require.Len(t, r.Relations, 2)
	assert.Equal(t, []rune("b"), r.Relations[0].Prefix)
	assert.Equal(t, []rune("c"), r.Relations[0].Key)
	assert.Equal(t, []rune("æ"), r.Relations[1].Key)
	assert.Equal(t, []rune("e"), r.Relations[1].Extension)
}

func TestParseRules_Before(t *testing.T) {
	res, err := ParseRules("&[before 2] a << x")
	require.NoError(t, err)
	r := res.Statements[0].(*Rule)
	assert.Equal(t, Secondary, r.Before)
	assert.Equal(t, []rune("a"), r.Anchor)

	_, err = ParseRules("&[before 1] a << x")
	assert.Error(t, err, "strength must match")
	_, err = ParseRules("&[before 4] a <<<< x")
	assert.Error(t, err)
	_, err = ParseRules("&[before 1] a = x")
	assert.NoError(t, err, "= is allowed after [before n]")
}

func TestParseRules_Logical(t *testing.T) {
	res, err := ParseRules("&[last variable] < x &[first implicit] < y")
	require.NoError(t, err)
	require.Len(t, res.Statements, 2)
	assert.Equal(t, LastVariable, res.Statements[0].(*Rule).Logical)
	assert.Equal(t, FirstImplicit, res.Statements[1].(*Rule).Logical)
	assert.Equal(t, "[last variable]", LastVariable.String())

	_, err = ParseRules("&[middle variable] < x")
	assert.Error(t, err)
}

func TestParseRules_Star(t *testing.T) {
	res, err := ParseRules("&a <* b-dx")
	require.NoError(t, err)
	r := res.Statements[0].(*Rule)
	var keys []string
	for _, rel := range r.Relations {
		assert.Equal(t, Primary, rel.Strength)
		keys = append(keys, string(rel.Key))
	}
	assert.Equal(t, []string{"b", "c", "d", "x"}, keys)

	res, err = ParseRules(`&a <* \uD7FF-\uE000`)
	require.NoError(t, err)
	assert.Len(t, res.Statements[0].(*Rule).Relations, 2, "surrogates are skipped")

	_, err = ParseRules("&a <* d-b")
	assert.Error(t, err)
	_, err = ParseRules("&a <* b|c")
	assert.Error(t, err)
}

func TestParseRules_Settings(t *testing.T) {
	res, err := ParseRules("[strength 2][alternate shifted][backwards 2][caseLevel on][caseFirst upper][normalization on][reorder Grek Latn digit]")
	require.NoError(t, err)
	require.Len(t, res.Statements, 7)
	st := res.Statements[6].(*Setting)
	assert.Equal(t, "reorder", st.Name)
	assert.Equal(t, []string{"Grek", "Latn", "digit"}, st.Args)
	assert.Empty(t, res.Warnings)

	res, err = ParseRules("[suppressContractions [ч-щ ѝ]]")
	require.NoError(t, err)
	assert.Equal(t, []rune("чшщѝ"), res.Statements[0].(*Setting).Set)
}

func TestParseRules_SettingWarnings(t *testing.T) {
	res, err := ParseRules("[numericOrdering on]\n[hiraganaQ off]\n[optimize [a-z]]")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 3)
	assert.Equal(t, 2, res.Warnings[1].Pos.Line)
}

func TestParseRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"relation_without_reset", "< a"},
		{"reset_without_relation", "&a"},
		{"reset_without_anchor", "&< a"},
		{"relation_without_key", "&a <"},
		{"unknown_option", "[bogus on]"},
		{"bad_value", "[caseFirst sideways]"},
		{"missing_value", "[strength]"},
		{"import", "[import de-u-co-phonebk]"},
		{"max_variable", "[maxVariable punct]"},
		{"reorder_without_codes", "[reorder]"},
		{"prefix_without_key", "&a < b|"},
		{"empty_extension", "&a < b/"},
		{"untailorable", `&a < \uFFFE`},
		{"too_long", "&a < abcdefghijklmnopqrstuvwxyzabcdefg"},
		{"stray_code_point", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules(tt.in)
			require.Error(t, err)
			var syn *RuleSyntaxError
			assert.True(t, errors.As(err, &syn))
		})
	}
}

func TestParseRules_PartialResult(t *testing.T) {
	res, err := ParseRules("&a < b\n&c < d\n&e < [bogus]")
	require.Error(t, err)
	assert.Len(t, res.Statements, 2)

	var syn *RuleSyntaxError
	require.True(t, errors.As(err, &syn))
	assert.Equal(t, 3, syn.Pos.Line)
}

func TestParseRules_ChainAcrossLines(t *testing.T) {
	res, err := ParseRules("&a < b\n&c < d\n< e")
	require.NoError(t, err)
	require.Len(t, res.Statements, 2)

	r := res.Statements[1].(*Rule)
	assert.Equal(t, []rune("c"), r.Anchor)
	require.Len(t, r.Relations, 2)
	assert.Equal(t, []rune("e"), r.Relations[1].Key)
	assert.Equal(t, 3, r.Relations[1].Pos.Line)
}
