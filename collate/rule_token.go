package collate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a rule lexer token.
type TokenType uint8

const (
	TokenEOF TokenType = iota
	TokenError

	TokenCodePoint // a literal, quoted or escaped code point
	TokenReset     // &
	TokenRelation  // < << <<< <<<< =, optionally starred
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenIdent     // word inside an option: before, reorder, Latn
	TokenPrefix    // |
	TokenExtension // /
	TokenDash      // - between code points of a set or star range
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "ERROR"
	case TokenCodePoint:
		return "CODEPOINT"
	case TokenReset:
		return "&"
	case TokenRelation:
		return "RELATION"
	case TokenLBracket:
		return "["
	case TokenRBracket:
		return "]"
	case TokenIdent:
		return "IDENT"
	case TokenPrefix:
		return "|"
	case TokenExtension:
		return "/"
	case TokenDash:
		return "-"
	default:
		return "UNKNOWN"
	}
}

// Token is a rule lexer token.
type Token struct {
	Type     TokenType
	Value    string
	Rune     rune     // TokenCodePoint
	Strength Strength // TokenRelation; Identical for '='
	Star     bool     // TokenRelation
	Pos      Position
}

// String returns a debug representation of the token.
func (t Token) String() string {
	switch t.Type {
	case TokenCodePoint:
		return fmt.Sprintf("CODEPOINT(%U)", t.Rune)
	case TokenIdent, TokenRelation, TokenError:
		return fmt.Sprintf("%s(%q)", t.Type, t.Value)
	}
	return t.Type.String()
}

// RuleLexer tokenizes tailoring rule text.
//
// Outside brackets every character that is not syntax is a code point.
// Directly inside one bracket level words are identifiers; inside nested
// brackets (code point sets) characters are code points again.
type RuleLexer struct {
	input   string
	pos     int
	line    int
	col     int
	depth   int
	inStar  bool
	pending []Token // rest of a quoted run
	err     error
}

// NewRuleLexer creates a lexer for rule text.
func NewRuleLexer(input string) *RuleLexer {
	return &RuleLexer{input: input, line: 1, col: 1}
}

// Tokenize returns all tokens. The last token is TokenEOF, or TokenError
// together with a *RuleSyntaxError.
func (l *RuleLexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok := l.next()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens, l.err
}

func (l *RuleLexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *RuleLexer) peek() rune {
	if l.pos >= len(l.input) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *RuleLexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *RuleLexer) fail(pos Position, format string, args ...any) Token {
	l.err = &RuleSyntaxError{Msg: fmt.Sprintf(format, args...), Pos: pos}
	return Token{Type: TokenError, Value: l.err.Error(), Pos: pos}
}

func (l *RuleLexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		r := l.peek()
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '#':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *RuleLexer) next() Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}
	l.skipWhitespaceAndComments()
	if l.pos >= len(l.input) {
		if l.depth > 0 {
			return l.fail(l.currentPos(), "unterminated '['")
		}
		return Token{Type: TokenEOF, Pos: l.currentPos()}
	}
	start := l.currentPos()
	r := l.peek()

	switch r {
	case '[':
		l.advance()
		l.depth++
		l.inStar = false
		return Token{Type: TokenLBracket, Value: "[", Pos: start}
	case ']':
		if l.depth == 0 {
			l.advance()
			return l.fail(start, "unbalanced ']'")
		}
		l.advance()
		l.depth--
		return Token{Type: TokenRBracket, Value: "]", Pos: start}
	}

	if l.depth == 1 {
		return l.scanIdent(start)
	}
	if l.depth >= 2 {
		if r == '-' {
			l.advance()
			return Token{Type: TokenDash, Value: "-", Pos: start}
		}
		return l.scanCodePoint(start)
	}

	switch r {
	case '&':
		l.advance()
		l.inStar = false
		return Token{Type: TokenReset, Value: "&", Pos: start}
	case '<':
		n := 0
		for l.peek() == '<' && n < 4 {
			l.advance()
			n++
		}
		if l.peek() == '<' {
			return l.fail(start, "too many '<' in relation")
		}
		return l.relation(start, Strength(n), strings.Repeat("<", n))
	case '=':
		l.advance()
		return l.relation(start, Identical, "=")
	case '|':
		l.advance()
		return Token{Type: TokenPrefix, Value: "|", Pos: start}
	case '/':
		l.advance()
		return Token{Type: TokenExtension, Value: "/", Pos: start}
	case '-':
		if l.inStar {
			l.advance()
			return Token{Type: TokenDash, Value: "-", Pos: start}
		}
	}
	return l.scanCodePoint(start)
}

func (l *RuleLexer) relation(start Position, s Strength, op string) Token {
	tok := Token{Type: TokenRelation, Value: op, Strength: s, Pos: start}
	if l.peek() == '*' {
		l.advance()
		tok.Star = true
		tok.Value += "*"
	}
	l.inStar = tok.Star
	return tok
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *RuleLexer) scanIdent(start Position) Token {
	var sb strings.Builder
	for l.pos < len(l.input) && isIdentRune(l.peek()) {
		sb.WriteRune(l.advance())
	}
	if sb.Len() == 0 {
		r := l.advance()
		return l.fail(start, "unexpected character %q in option", r)
	}
	return Token{Type: TokenIdent, Value: sb.String(), Pos: start}
}

// scanCodePoint scans a literal, an escape or a quoted run.
func (l *RuleLexer) scanCodePoint(start Position) Token {
	r := l.peek()
	switch r {
	case '\'':
		return l.scanQuoted(start)
	case '\\':
		l.advance()
		cp, err := l.scanEscape()
		if err != nil {
			return l.fail(start, "%s", err)
		}
		return l.codePoint(start, cp)
	}
	l.advance()
	return l.codePoint(start, r)
}

func (l *RuleLexer) codePoint(pos Position, r rune) Token {
	if !utf8.ValidRune(r) {
		return l.fail(pos, "invalid code point %U", r)
	}
	return Token{Type: TokenCodePoint, Value: string(r), Rune: r, Pos: pos}
}

// scanQuoted handles a quoted run and the doubled quote that stands for
// an apostrophe. A quoted run yields its first code point; the others are
// queued.
func (l *RuleLexer) scanQuoted(start Position) Token {
	l.advance() // opening quote
	if l.peek() == '\'' {
		l.advance()
		return l.codePoint(start, '\'')
	}
	var run []rune
	var positions []Position
	for {
		if l.pos >= len(l.input) {
			return l.fail(start, "unterminated quote")
		}
		p := l.currentPos()
		r := l.advance()
		if r == '\'' {
			if l.peek() == '\'' {
				l.advance()
				run = append(run, '\'')
				positions = append(positions, p)
				continue
			}
			break
		}
		if r == '\\' {
			cp, err := l.scanEscape()
			if err != nil {
				return l.fail(p, "%s", err)
			}
			r = cp
		}
		run = append(run, r)
		positions = append(positions, p)
	}
	if len(run) == 0 {
		return l.fail(start, "empty quote")
	}
	for i := 1; i < len(run); i++ {
		tok := l.codePoint(positions[i], run[i])
		if tok.Type == TokenError {
			return tok
		}
		l.pending = append(l.pending, tok)
	}
	return l.codePoint(positions[0], run[0])
}

// scanEscape scans the escape following a backslash.
func (l *RuleLexer) scanEscape() (rune, error) {
	if l.pos >= len(l.input) {
		return 0, fmt.Errorf("unterminated escape")
	}
	r := l.advance()
	switch r {
	case 'u':
		return l.scanHex(4, 4)
	case 'U':
		return l.scanHex(8, 8)
	case 'x':
		if l.peek() == '{' {
			l.advance()
			var sb strings.Builder
			for l.pos < len(l.input) && l.peek() != '}' {
				sb.WriteRune(l.advance())
			}
			if l.pos >= len(l.input) {
				return 0, fmt.Errorf("unterminated \\x{")
			}
			l.advance()
			return parseCodePoint(sb.String(), 16)
		}
		return l.scanHex(1, 2)
	case 'o':
		var sb strings.Builder
		for sb.Len() < 3 && l.peek() >= '0' && l.peek() <= '7' {
			sb.WriteRune(l.advance())
		}
		if sb.Len() == 0 {
			return 0, fmt.Errorf("expected octal digits after \\o")
		}
		return parseCodePoint(sb.String(), 8)
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 't':
		return '\t', nil
	case 'n':
		return '\n', nil
	case 'v':
		return '\v', nil
	case 'f':
		return '\f', nil
	case 'r':
		return '\r', nil
	}
	return r, nil
}

func (l *RuleLexer) scanHex(min, max int) (rune, error) {
	var sb strings.Builder
	for sb.Len() < max && isHexDigit(l.peek()) {
		sb.WriteRune(l.advance())
	}
	if sb.Len() < min {
		return 0, fmt.Errorf("expected %d hex digits in escape", min)
	}
	return parseCodePoint(sb.String(), 16)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func parseCodePoint(s string, base int) (rune, error) {
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid escape %q", s)
	}
	r := rune(v)
	if !utf8.ValidRune(r) {
		return 0, fmt.Errorf("escape %q is not a valid code point", s)
	}
	return r, nil
}
