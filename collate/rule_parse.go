package collate

import (
	"fmt"
	"strings"
)

// maxKeyLen bounds the number of code points in a tailored key.
const maxKeyLen = 32

// LogicalPosition names a special reset anchor such as [last variable].
type LogicalPosition uint8

const (
	LogicalNone LogicalPosition = iota
	FirstTertiaryIgnorable
	LastTertiaryIgnorable
	FirstSecondaryIgnorable
	LastSecondaryIgnorable
	FirstPrimaryIgnorable
	LastPrimaryIgnorable
	FirstVariable
	LastVariable
	FirstRegular
	LastRegular
	FirstImplicit
	LastImplicit
	FirstTrailing
	LastTrailing
)

var logicalNames = map[string]LogicalPosition{
	"first tertiary ignorable":  FirstTertiaryIgnorable,
	"last tertiary ignorable":   LastTertiaryIgnorable,
	"first secondary ignorable": FirstSecondaryIgnorable,
	"last secondary ignorable":  LastSecondaryIgnorable,
	"first primary ignorable":   FirstPrimaryIgnorable,
	"last primary ignorable":    LastPrimaryIgnorable,
	"first variable":            FirstVariable,
	"last variable":             LastVariable,
	"first regular":             FirstRegular,
	"last regular":              LastRegular,
	"first implicit":            FirstImplicit,
	"last implicit":             LastImplicit,
	"first trailing":            FirstTrailing,
	"last trailing":             LastTrailing,
}

// String returns the bracketed rule spelling.
func (p LogicalPosition) String() string {
	for name, lp := range logicalNames {
		if lp == p {
			return "[" + name + "]"
		}
	}
	return "[none]"
}

// Statement is a parsed rule statement: *Rule or *Setting.
type Statement interface {
	StatementPos() Position
}

// Rule is a reset followed by a chain of relations.
type Rule struct {
	Pos       Position
	Before    Strength // 0 when there is no [before n]
	Anchor    []rune
	Logical   LogicalPosition
	Relations []Relation
}

// StatementPos implements Statement.
func (r *Rule) StatementPos() Position { return r.Pos }

// Relation is one "<", "<<", "<<<", "<<<<" or "=" step of a rule.
type Relation struct {
	Pos       Position
	Strength  Strength
	Key       []rune
	Prefix    []rune // context before Key, from "prefix|key"
	Extension []rune // from "key/extension"
}

// Setting is a bracketed table-wide option such as [caseFirst upper].
type Setting struct {
	Pos  Position
	Name string
	Args []string
	Set  []rune // code point set argument, if any
}

// StatementPos implements Statement.
func (s *Setting) StatementPos() Position { return s.Pos }

// ParseResult holds the statements and warnings of a parse.
type ParseResult struct {
	Statements []Statement
	Warnings   []*RuleSyntaxError
}

// ruleParser parses a token stream into statements.
type ruleParser struct {
	tokens []Token
	pos    int
	result *ParseResult
}

// ParseRules parses tailoring rule text. On failure the returned error is
// a *RuleSyntaxError and the result holds the statements parsed so far.
func ParseRules(src string) (*ParseResult, error) {
	result := &ParseResult{}
	tokens, err := NewRuleLexer(src).Tokenize()
	if err != nil {
		return result, err
	}
	p := &ruleParser{tokens: tokens, result: result}
	for p.peek().Type != TokenEOF {
		st, err := p.parseStatement()
		if err != nil {
			return result, err
		}
		result.Statements = append(result.Statements, st)
	}
	return result, nil
}

func (p *ruleParser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *ruleParser) peekN(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+n]
}

func (p *ruleParser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *ruleParser) errorf(pos Position, format string, args ...any) error {
	return &RuleSyntaxError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

func (p *ruleParser) warnf(pos Position, format string, args ...any) {
	p.result.Warnings = append(p.result.Warnings, &RuleSyntaxError{Msg: fmt.Sprintf(format, args...), Pos: pos})
}

func (p *ruleParser) expect(typ TokenType) (Token, error) {
	tok := p.advance()
	if tok.Type != typ {
		return tok, p.errorf(tok.Pos, "expected %s, got %s", typ, tok)
	}
	return tok, nil
}

func (p *ruleParser) parseStatement() (Statement, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenReset:
		return p.parseRule()
	case TokenLBracket:
		return p.parseSetting()
	case TokenRelation:
		return nil, p.errorf(tok.Pos, "relation %q without a preceding reset", tok.Value)
	default:
		return nil, p.errorf(tok.Pos, "expected '&' or '[', got %s", tok)
	}
}

// ============================================================
// Rules
// ============================================================

func (p *ruleParser) parseRule() (*Rule, error) {
	amp := p.advance()
	rule := &Rule{Pos: amp.Pos}

	if p.peek().Type == TokenLBracket && p.peekN(1).Type == TokenIdent && p.peekN(1).Value == "before" {
		p.advance()
		p.advance()
		n, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		switch n.Value {
		case "1":
			rule.Before = Primary
		case "2":
			rule.Before = Secondary
		case "3":
			rule.Before = Tertiary
		default:
			return nil, p.errorf(n.Pos, "[before %s] must be 1, 2 or 3", n.Value)
		}
		if _, err := p.expect(TokenRBracket); err != nil {
			return nil, err
		}
	}

	if p.peek().Type == TokenLBracket {
		lp, err := p.parseLogical()
		if err != nil {
			return nil, err
		}
		rule.Logical = lp
	} else {
		anchor, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if len(anchor) == 0 {
			return nil, p.errorf(amp.Pos, "reset without an anchor")
		}
		rule.Anchor = anchor
	}

	for p.peek().Type == TokenRelation {
		rels, err := p.parseRelation()
		if err != nil {
			return nil, err
		}
		rule.Relations = append(rule.Relations, rels...)
	}
	if len(rule.Relations) == 0 {
		return nil, p.errorf(amp.Pos, "reset must be followed by at least one relation")
	}
	if rule.Before != 0 && rule.Relations[0].Strength != Identical && rule.Relations[0].Strength != rule.Before {
		return nil, p.errorf(rule.Relations[0].Pos, "relation strength must match S in [before S]")
	}
	return rule, nil
}

func (p *ruleParser) parseLogical() (LogicalPosition, error) {
	open := p.advance()
	var words []string
	for p.peek().Type == TokenIdent {
		words = append(words, p.advance().Value)
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return LogicalNone, err
	}
	name := strings.Join(words, " ")
	lp, ok := logicalNames[name]
	if !ok {
		return LogicalNone, p.errorf(open.Pos, "unknown logical position [%s]", name)
	}
	return lp, nil
}

// parseSequence collects consecutive code points.
func (p *ruleParser) parseSequence() ([]rune, error) {
	var cps []rune
	for p.peek().Type == TokenCodePoint {
		tok := p.advance()
		cps = append(cps, tok.Rune)
		if len(cps) > maxKeyLen {
			return nil, p.errorf(tok.Pos, "sequence longer than %d code points", maxKeyLen)
		}
	}
	return cps, nil
}

func (p *ruleParser) parseRelation() ([]Relation, error) {
	op := p.advance()
	if op.Star {
		return p.parseStarRelation(op)
	}
	first, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return nil, p.errorf(op.Pos, "relation %q without a key", op.Value)
	}
	rel := Relation{Pos: op.Pos, Strength: op.Strength, Key: first}
	if p.peek().Type == TokenPrefix {
		p.advance()
		key, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if len(key) == 0 {
			return nil, p.errorf(op.Pos, "prefix %q without a key", string(first))
		}
		rel.Prefix, rel.Key = first, key
	}
	if p.peek().Type == TokenExtension {
		slash := p.advance()
		ext, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if len(ext) == 0 {
			return nil, p.errorf(slash.Pos, "empty extension")
		}
		rel.Extension = ext
	}
	if err := checkTailorable(rel.Key, op.Pos); err != nil {
		return nil, err
	}
	if len(rel.Prefix)+len(rel.Key) > maxKeyLen {
		return nil, p.errorf(op.Pos, "prefix and key longer than %d code points", maxKeyLen)
	}
	return []Relation{rel}, nil
}

// parseStarRelation expands "<* abc" and "<* a-d" into one relation per
// code point.
func (p *ruleParser) parseStarRelation(op Token) ([]Relation, error) {
	var rels []Relation
	for p.peek().Type == TokenCodePoint {
		tok := p.advance()
		lo, hi := tok.Rune, tok.Rune
		if p.peek().Type == TokenDash {
			p.advance()
			end, err := p.expect(TokenCodePoint)
			if err != nil {
				return nil, err
			}
			hi = end.Rune
			if hi < lo {
				return nil, p.errorf(tok.Pos, "invalid range %U-%U", lo, hi)
			}
		}
		for r := lo; r <= hi; r++ {
			if r >= 0xD800 && r <= 0xDFFF {
				continue
			}
			key := []rune{r}
			if err := checkTailorable(key, tok.Pos); err != nil {
				return nil, err
			}
			rels = append(rels, Relation{Pos: tok.Pos, Strength: op.Strength, Key: key})
		}
	}
	if len(rels) == 0 {
		return nil, p.errorf(op.Pos, "relation %q without code points", op.Value)
	}
	switch p.peek().Type {
	case TokenPrefix, TokenExtension:
		return nil, p.errorf(p.peek().Pos, "star relations take neither prefix nor extension")
	}
	return rels, nil
}

func checkTailorable(key []rune, pos Position) error {
	for _, r := range key {
		if r >= 0xFFFD && r <= 0xFFFF {
			return &RuleSyntaxError{Msg: fmt.Sprintf("%U cannot be tailored", r), Pos: pos}
		}
	}
	return nil
}

// ============================================================
// Settings
// ============================================================

type settingSpec struct {
	values   []string // accepted single argument values; nil for free-form
	set      bool     // takes a code point set
	words    bool     // takes one or more words
	warn     string   // accepted but ignored, with this warning
	rejected string   // not supported
}

var settingSpecs = map[string]settingSpec{
	"strength":             {values: []string{"1", "2", "3", "4", "I"}},
	"alternate":            {values: []string{"shifted", "non-ignorable"}},
	"backwards":            {values: []string{"2"}},
	"caseLevel":            {values: []string{"on", "off"}},
	"caseFirst":            {values: []string{"upper", "lower", "off"}},
	"normalization":        {values: []string{"on", "off"}},
	"numericOrdering":      {values: []string{"on", "off"}, warn: "numericOrdering is not supported and is ignored"},
	"hiraganaQ":            {values: []string{"on", "off"}, warn: "hiraganaQ is not supported and is ignored"},
	"suppressContractions": {set: true},
	"optimize":             {set: true, warn: "optimize has no effect and is ignored"},
	"reorder":              {words: true},
	"import":               {words: true, rejected: "[import] is not supported"},
	"maxVariable":          {words: true, rejected: "[maxVariable] is not supported"},
}

func (p *ruleParser) parseSetting() (*Setting, error) {
	open := p.advance()
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	spec, ok := settingSpecs[name.Value]
	if !ok {
		return nil, p.errorf(name.Pos, "unknown option [%s]", name.Value)
	}
	st := &Setting{Pos: open.Pos, Name: name.Value}
	if spec.set {
		set, err := p.parseSet()
		if err != nil {
			return nil, err
		}
		st.Set = set
	} else {
		for p.peek().Type == TokenIdent {
			st.Args = append(st.Args, p.advance().Value)
		}
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return nil, err
	}

	if spec.rejected != "" {
		return nil, p.errorf(open.Pos, "%s", spec.rejected)
	}
	switch {
	case spec.values != nil:
		if len(st.Args) != 1 || !contains(spec.values, st.Args[0]) {
			return nil, p.errorf(open.Pos, "[%s] expects one of %s", st.Name, strings.Join(spec.values, ", "))
		}
	case spec.words:
		if len(st.Args) == 0 {
			return nil, p.errorf(open.Pos, "[%s] expects at least one argument", st.Name)
		}
	}
	if spec.warn != "" {
		p.warnf(open.Pos, "%s", spec.warn)
	}
	return st, nil
}

// parseSet parses a nested "[abc x-z]" code point set.
func (p *ruleParser) parseSet() ([]rune, error) {
	if _, err := p.expect(TokenLBracket); err != nil {
		return nil, err
	}
	var set []rune
	for p.peek().Type == TokenCodePoint {
		tok := p.advance()
		lo, hi := tok.Rune, tok.Rune
		if p.peek().Type == TokenDash {
			p.advance()
			end, err := p.expect(TokenCodePoint)
			if err != nil {
				return nil, err
			}
			hi = end.Rune
			if hi < lo {
				return nil, p.errorf(tok.Pos, "invalid range %U-%U", lo, hi)
			}
		}
		for r := lo; r <= hi; r++ {
			set = append(set, r)
		}
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return nil, err
	}
	return set, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
