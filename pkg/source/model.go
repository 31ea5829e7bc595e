// Package source builds the normalized program model that every analyzer
// consumes: a tree of code blocks with their spans, normalized statements
// and branch points. Real grammars come from tree-sitter; dialects without a
// grammar are modeled by a lexer-driven scope approximation.
package source

import "strings"

// Kind discriminates the block variants.
type Kind string

// Block kinds.
const (
	KindModule   Kind = "module"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
)

// IsCallable reports whether blocks of this kind carry a complexity record.
func (k Kind) IsCallable() bool {
	return k == KindFunction || k == KindMethod
}

// BranchKind classifies a branch point.
type BranchKind string

// Branch point kinds. Each occurrence adds one independent path.
const (
	BranchIf      BranchKind = "if"
	BranchElif    BranchKind = "elif"
	BranchCase    BranchKind = "case"
	BranchCatch   BranchKind = "catch"
	BranchLoop    BranchKind = "loop"
	BranchBoolean BranchKind = "boolean"
	BranchTernary BranchKind = "ternary"
)

// Backend names the parser that produced a unit.
type Backend string

// Parser backends.
const (
	BackendTreeSitter Backend = "tree-sitter"
	BackendFallback   Backend = "fallback"
)

// Normalized token placeholders.
const (
	TokenIdentifier = "ID"
	TokenLiteral    = "LIT"
)

// BranchPoint is a single control-flow branch occurrence.
type BranchPoint struct {
	Kind BranchKind `json:"kind"`
	Line int        `json:"line"`
}

// Statement is one statement with identifiers and literals replaced by placeholders.
type Statement struct {
	Line   int      `json:"line"`
	Tokens []string `json:"tokens"`
}

// String joins the statement tokens with single spaces.
func (s Statement) String() string {
	return strings.Join(s.Tokens, " ")
}

// Block is a module, class, function or method scope.
type Block struct {
	Name       string        `json:"name"`
	Kind       Kind          `json:"kind"`
	StartLine  int           `json:"start_line"`
	EndLine    int           `json:"end_line"`
	Depth      int           `json:"depth"`
	Statements []Statement   `json:"statements,omitempty"`
	Branches   []BranchPoint `json:"branches,omitempty"`
	Children   []*Block      `json:"children,omitempty"`
}

// Walk visits the block and its descendants in source order.
// Returning false from fn skips the children of the visited block.
func (b *Block) Walk(fn func(*Block) bool) {
	if b == nil || !fn(b) {
		return
	}

	for _, child := range b.Children {
		child.Walk(fn)
	}
}

// Unit is one analyzable file, modeled once and never mutated afterwards.
type Unit struct {
	ID      string  `json:"id"`
	Text    string  `json:"-"`
	Dialect string  `json:"dialect"`
	Backend Backend `json:"backend"`
	Root    *Block  `json:"root"`
}

// Blocks returns every block below the module root in source order.
func (u *Unit) Blocks() []*Block {
	if u == nil || u.Root == nil {
		return nil
	}

	var blocks []*Block

	u.Root.Walk(func(b *Block) bool {
		if b != u.Root {
			blocks = append(blocks, b)
		}

		return true
	})

	return blocks
}

// AllBlocks returns the module root followed by every nested block in source order.
func (u *Unit) AllBlocks() []*Block {
	if u == nil || u.Root == nil {
		return nil
	}

	return append([]*Block{u.Root}, u.Blocks()...)
}

// Profile returns the lexical profile of the unit's dialect.
func (u *Unit) Profile() *Profile {
	return ProfileFor(u.Dialect)
}
