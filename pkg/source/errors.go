package source

import (
	"errors"
	"fmt"
)

// ErrParse is the sentinel wrapped by every ParseError.
var ErrParse = errors.New("parse error")

// Sentinel errors for builder misuse.
var (
	errNilLanguage = errors.New("grammar not available")
	errParserPool  = errors.New("unexpected parser pool type")
	errNoRootNode  = errors.New("tree-sitter returned no root node")
)

// ParseError reports text that cannot be modeled under its dialect.
type ParseError struct {
	UnitID  string
	Dialect string
	Line    int
	Column  int
	Reason  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s:%d:%d: %s (%s)", ErrParse, e.UnitID, e.Line, e.Column, e.Reason, e.Dialect)
	}

	return fmt.Sprintf("%s: %s: %s (%s)", ErrParse, e.UnitID, e.Reason, e.Dialect)
}

// Unwrap lets errors.Is match ErrParse.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

func newParseError(unitID, dialect string, line, col int, format string, args ...any) *ParseError {
	return &ParseError{
		UnitID:  unitID,
		Dialect: dialect,
		Line:    line,
		Column:  col,
		Reason:  fmt.Sprintf(format, args...),
	}
}
