// Package raw counts the physical lines of a unit by category.
package raw

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/gitradar/pkg/source"
	"github.com/Sumatoshi-tech/gitradar/pkg/textutil"
)

// Sentinel errors.
var (
	ErrLex     = errors.New("raw: dialect lexer failed")
	ErrNilUnit = errors.New("raw: unit is nil")
)

// SizeRecord holds line counts. Total is always Blank + Comment + Source.
type SizeRecord struct {
	Total   int `json:"total"   yaml:"total"`
	Blank   int `json:"blank"   yaml:"blank"`
	Comment int `json:"comment" yaml:"comment"`
	Source  int `json:"source"  yaml:"source"`
}

type lineMark uint8

const (
	markComment lineMark = 1 << iota
	markCode
)

// Analyze classifies every physical line of the unit as blank, comment or source.
func Analyze(unit *source.Unit) (SizeRecord, error) {
	if unit == nil {
		return SizeRecord{}, ErrNilUnit
	}

	return Count(unit.Text, unit.Profile())
}

// Count classifies the lines of text under a dialect profile.
func Count(text string, profile *source.Profile) (SizeRecord, error) {
	lines := textutil.Lines(text)
	if len(lines) == 0 {
		return SizeRecord{}, nil
	}

	tokens, err := source.Lex(text, profile)
	if err != nil {
		return SizeRecord{}, fmt.Errorf("%w: %w", ErrLex, err)
	}

	marks := make([]lineMark, len(lines)+1)

	for _, tok := range tokens {
		mark := markCode
		if tok.Kind == source.TokComment {
			mark = markComment
		}

		for line := tok.Line; line <= tok.EndLine && line <= len(lines); line++ {
			marks[line] |= mark
		}
	}

	var rec SizeRecord

	for i, line := range lines {
		switch m := marks[i+1]; {
		case m&markCode != 0:
			rec.Source++
		case m&markComment != 0:
			rec.Comment++
		case strings.TrimSpace(line) == "":
			rec.Blank++
		default:
			rec.Source++
		}
	}

	rec.Total = rec.Blank + rec.Comment + rec.Source

	return rec, nil
}
