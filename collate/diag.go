package collate

import (
	"fmt"
	"strings"
)

// Severity of a compiler diagnostic.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a message reported through the error or warning handler of
// Compile.
type Diagnostic struct {
	Severity Severity
	Err      error
	Pos      Position
	Filename string
	Line     string // source line holding Pos, when known
}

// String renders the diagnostic as
//
//	file:line:col: error: message
//	<source line>
//	    ^
func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.Filename != "" {
		sb.WriteString(d.Filename)
		sb.WriteByte(':')
	}
	if d.Pos.Line > 0 {
		fmt.Fprintf(&sb, "%d:%d: ", d.Pos.Line, d.Pos.Column)
	}
	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")
	msg := "unknown"
	if d.Err != nil {
		msg = strings.TrimPrefix(d.Err.Error(), "collate: ")
	}
	sb.WriteString(msg)
	if d.Line != "" {
		sb.WriteByte('\n')
		sb.WriteString(d.Line)
		sb.WriteByte('\n')
		if d.Pos.Column > 0 {
			sb.WriteString(strings.Repeat(" ", d.Pos.Column-1))
		}
		sb.WriteByte('^')
	}
	return sb.String()
}

// DiagnosticHandler receives compiler diagnostics.
type DiagnosticHandler func(Diagnostic)

// sourceLine returns the 1-based line n of src.
func sourceLine(src string, n int) string {
	if n < 1 {
		return ""
	}
	for i := 1; ; i++ {
		idx := strings.IndexByte(src, '\n')
		if i == n {
			if idx < 0 {
				return strings.TrimRight(src, "\r")
			}
			return strings.TrimRight(src[:idx], "\r")
		}
		if idx < 0 {
			return ""
		}
		src = src[idx+1:]
	}
}
