package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/gitradar/pkg/textutil"
)

// Builder turns raw unit text into a Unit. It is safe for concurrent use.
type Builder struct {
	grammars bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithoutGrammars forces the lexer backend for every dialect.
func WithoutGrammars() Option {
	return func(b *Builder) {
		b.grammars = false
	}
}

// NewBuilder creates a builder. Tree-sitter grammars are used when available.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{grammars: true}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

var defaultBuilder = NewBuilder()

// Build models text with the default builder.
func Build(ctx context.Context, unitID, text, dialectHint string) (*Unit, error) {
	return defaultBuilder.Build(ctx, unitID, text, dialectHint)
}

// Build models one unit. An empty dialect hint triggers detection from the
// unit id and content. Text that does not parse under the resolved dialect
// yields a *ParseError.
func (b *Builder) Build(ctx context.Context, unitID, text, dialectHint string) (*Unit, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	dialect := ResolveDialect(unitID, dialectHint, []byte(text))

	switch err := textutil.CheckText([]byte(text)); {
	case errors.Is(err, textutil.ErrBinary):
		return nil, newParseError(unitID, dialect, 0, 0, "binary content")
	case err != nil:
		return nil, newParseError(unitID, dialect, 0, 0, "%v", err)
	}

	if g := grammarFor(dialect); g != nil && b.grammars {
		unit, tsErr := buildTreeSitter(ctx, g, unitID, dialect, text)

		switch {
		case tsErr == nil:
			return unit, nil
		case !errors.Is(tsErr, errNilLanguage):
			return nil, tsErr
		}
	}

	unit, err := buildFallback(unitID, dialect, text)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", unitID, err)
	}

	return unit, nil
}
