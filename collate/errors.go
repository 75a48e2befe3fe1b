package collate

import (
	"errors"
	"fmt"
)

// Position is a location in rule text.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String returns position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Builder input errors.
var (
	ErrEmptyKey   = errors.New("collate: empty key")
	ErrInvalidKey = errors.New("collate: key contains an invalid code point")
	ErrEmptyElems = errors.New("collate: empty element sequence")
)

// RuleSyntaxError reports rule text that cannot be parsed or uses an
// unsupported directive.
type RuleSyntaxError struct {
	Msg string
	Pos Position
}

func (e *RuleSyntaxError) Error() string {
	return fmt.Sprintf("collate: %s at %s", e.Msg, e.Pos)
}

// UnresolvedAnchorError reports a reset that has no position in the
// current table.
type UnresolvedAnchorError struct {
	Anchor string
	Reason string
	Pos    Position
}

func (e *UnresolvedAnchorError) Error() string {
	return fmt.Sprintf("collate: cannot resolve anchor %q at %s: %s", e.Anchor, e.Pos, e.Reason)
}

// ConflictingTailoringError reports a key that is tailored more than once.
// Within one reset chain it is fatal; across statements it is a warning.
type ConflictingTailoringError struct {
	Key  string
	Pos  Position
	Prev Position
}

func (e *ConflictingTailoringError) Error() string {
	return fmt.Sprintf("collate: %q at %s was already tailored at %s", e.Key, e.Pos, e.Prev)
}

// WeightSpaceExhaustedError is returned when no weight can be placed
// between two neighbours, even after renumbering.
type WeightSpaceExhaustedError struct {
	Level Strength
	Pos   Position
}

func (e *WeightSpaceExhaustedError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("collate: %s weight space exhausted at %s", e.Level, e.Pos)
	}
	return fmt.Sprintf("collate: %s weight space exhausted", e.Level)
}

// errorPos extracts the rule position from a compiler error, if any.
func errorPos(err error) (Position, bool) {
	var (
		syn *RuleSyntaxError
		una *UnresolvedAnchorError
		con *ConflictingTailoringError
		exh *WeightSpaceExhaustedError
	)
	switch {
	case errors.As(err, &syn):
		return syn.Pos, true
	case errors.As(err, &una):
		return una.Pos, true
	case errors.As(err, &con):
		return con.Pos, true
	case errors.As(err, &exh):
		return exh.Pos, exh.Pos.Line > 0
	}
	return Position{}, false
}
