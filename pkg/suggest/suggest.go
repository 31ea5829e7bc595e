// Package suggest derives improvement suggestions from lexical heuristics:
// short identifiers, TODO and FIXME comments, and function names that break
// the snake_case convention.
package suggest

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/Sumatoshi-tech/gitradar/pkg/source"
	"github.com/Sumatoshi-tech/gitradar/pkg/textutil"
)

// ErrInvalidInput is returned for empty or non-text input. Whitespace-only
// text is valid and yields no suggestions.
var ErrInvalidInput = errors.New("suggest: invalid input")

// minIdentifierLen is the shortest identifier not flagged as undescriptive.
const minIdentifierLen = 3

// Category classifies a suggestion.
type Category string

// Suggestion categories in output order.
const (
	CategoryNaming     Category = "naming"
	CategoryFixme      Category = "fixme"
	CategoryTodo       Category = "todo"
	CategoryConvention Category = "naming-convention"
)

// Suggestion is one improvement hint.
type Suggestion struct {
	Category Category `json:"category" yaml:"category"`
	Text     string   `json:"text"     yaml:"text"`
}

// Set is the ordered list of suggestions for one input.
type Set []Suggestion

// Texts returns the suggestion texts in order.
func (s Set) Texts() []string {
	return lo.Map(s, func(item Suggestion, _ int) string { return item.Text })
}

// ByCategory counts suggestions per category.
func (s Set) ByCategory() map[Category]int {
	return lo.CountValuesBy(s, func(item Suggestion) Category { return item.Category })
}

// Context is the lexical summary of a text.
type Context struct {
	Identifiers   []string `json:"identifiers"    yaml:"identifiers"`
	FunctionNames []string `json:"function_names" yaml:"function_names"`
	Comments      []string `json:"comments"       yaml:"comments"`
}

var (
	identifierPattern = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
	functionPattern   = regexp.MustCompile(`\b(?:def|func|function|fn|fun)\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	snakeCasePattern  = regexp.MustCompile(`^_*[a-z][a-z0-9_]*$`)
)

// ExtractContext collects identifiers, function names and comments, guessing
// the dialect from the text.
func ExtractContext(text string) (*Context, error) {
	return ExtractContextFor(text, "")
}

// ExtractContextFor is ExtractContext for text of a known dialect; its
// keywords are not reported as identifiers. An empty dialect is detected.
// Comments start at "#" anywhere on a line, or at "//" at the start of a line
// or after whitespace.
func ExtractContextFor(text, dialect string) (*Context, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}

	err := textutil.CheckText([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	ctx := &Context{Identifiers: []string{}, FunctionNames: []string{}, Comments: []string{}}

	var code strings.Builder

	for _, line := range textutil.Lines(text) {
		at, marker := commentStart(line)
		if at < 0 {
			code.WriteString(line)
			code.WriteByte('\n')

			continue
		}

		if comment := strings.TrimSpace(line[at+len(marker):]); comment != "" {
			ctx.Comments = append(ctx.Comments, comment)
		}

		code.WriteString(line[:at])
		code.WriteByte('\n')
	}

	stripped := code.String()

	if dialect == "" {
		dialect = source.DetectDialect("", []byte(text))
	}

	words := lo.Filter(identifierPattern.FindAllString(stripped, -1), func(w string, _ int) bool {
		return !source.IsReservedIn(dialect, w)
	})
	ctx.Identifiers = sortedUnique(words)

	names := lo.Map(functionPattern.FindAllStringSubmatch(stripped, -1), func(m []string, _ int) string {
		return m[1]
	})
	ctx.FunctionNames = sortedUnique(names)

	return ctx, nil
}

// commentStart returns the byte offset and marker of the first comment on
// the line, or -1.
func commentStart(line string) (int, string) {
	hash := strings.IndexByte(line, '#')
	slash := -1

	for i := 0; i+1 < len(line); i++ {
		if line[i] == '/' && line[i+1] == '/' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t') {
			slash = i

			break
		}
	}

	switch {
	case hash < 0 && slash < 0:
		return -1, ""
	case slash < 0 || (hash >= 0 && hash < slash):
		return hash, "#"
	default:
		return slash, "//"
	}
}

func sortedUnique(items []string) []string {
	out := lo.Uniq(items)
	slices.Sort(out)

	if out == nil {
		return []string{}
	}

	return out
}

// Suggest applies the naming, comment and convention rules in that order.
// It never mutates ctx.
func Suggest(ctx *Context) Set {
	set := Set{}
	if ctx == nil {
		return set
	}

	for _, name := range ctx.Identifiers {
		if len(name) < minIdentifierLen {
			set = append(set, Suggestion{
				Category: CategoryNaming,
				Text:     fmt.Sprintf("Consider using a more descriptive variable name instead of '%s'.", name),
			})
		}
	}

	for _, comment := range ctx.Comments {
		lower := strings.ToLower(comment)

		if strings.Contains(lower, "fixme") {
			set = append(set, Suggestion{
				Category: CategoryFixme,
				Text:     fmt.Sprintf("Address the issue mentioned in the comment: '%s'", comment),
			})
		}

		if strings.Contains(lower, "todo") {
			set = append(set, Suggestion{
				Category: CategoryTodo,
				Text:     fmt.Sprintf("Complete the task mentioned in the comment: '%s'", comment),
			})
		}
	}

	for _, name := range ctx.FunctionNames {
		if !snakeCasePattern.MatchString(name) {
			set = append(set, Suggestion{
				Category: CategoryConvention,
				Text:     fmt.Sprintf("Function name '%s' should be in snake_case.", name),
			})
		}
	}

	return set
}

// Generate extracts the context of text and applies every rule.
func Generate(text string) (Set, error) {
	return GenerateFor(text, "")
}

// GenerateFor is Generate for text of a known dialect.
func GenerateFor(text, dialect string) (Set, error) {
	ctx, err := ExtractContextFor(text, dialect)
	if err != nil {
		return nil, err
	}

	return Suggest(ctx), nil
}
