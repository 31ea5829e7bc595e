package source

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/gitradar/pkg/textutil"
)

// anonymousName labels functions that carry no name in the source.
const anonymousName = "(anonymous)"

// maxDerivedNameLen bounds names borrowed from an enclosing assignment.
const maxDerivedNameLen = 64

// nameLookupDepth bounds the declarator chain followed when resolving a name.
const nameLookupDepth = 6

// buildTreeSitter models text with a real grammar.
func buildTreeSitter(ctx context.Context, g *grammar, unitID, dialect, text string) (*Unit, error) {
	parser, err := g.acquire()
	if err != nil {
		return nil, err
	}
	defer g.release(parser)

	src := []byte(text)

	tree, err := parser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", unitID, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	if root.HasError() {
		bad := firstError(root)
		pos := bad.StartPoint()

		return nil, newParseError(unitID, dialect, int(pos.Row)+1, int(pos.Column)+1,
			"syntax error near %q", snippet(src, bad))
	}

	module := &Block{
		Name:      moduleName(unitID),
		Kind:      KindModule,
		StartLine: 1,
		EndLine:   lineCount(text),
	}

	w := &tsWalker{g: g, src: src, stack: []*Block{module}}
	w.walk(root, sitter.Node{}, false)

	return &Unit{
		ID:      unitID,
		Text:    text,
		Dialect: dialect,
		Backend: BackendTreeSitter,
		Root:    module,
	}, nil
}

type tsWalker struct {
	g     *grammar
	src   []byte
	stack []*Block
}

func (w *tsWalker) top() *Block {
	return w.stack[len(w.stack)-1]
}

func (w *tsWalker) walk(n, parent sitter.Node, inClass bool) {
	typ := n.Type()
	if w.g.comments[typ] {
		return
	}

	line := int(n.StartPoint().Row) + 1

	if w.g.isStatement(n, parent) {
		stmt := Statement{Line: line, Tokens: w.collect(n)}
		if len(stmt.Tokens) > 0 {
			for _, b := range w.stack {
				b.Statements = append(b.Statements, stmt)
			}
		}
	}

	if kind, ok := w.g.branchKind(n); ok {
		w.top().Branches = append(w.top().Branches, BranchPoint{Kind: kind, Line: line})
	}

	if w.g.boolOps[typ] {
		for i := range n.ChildCount() {
			child := n.Child(i)
			if !child.IsNamed() && w.g.boolTokens[child.Type()] {
				w.top().Branches = append(w.top().Branches, BranchPoint{
					Kind: BranchBoolean,
					Line: int(child.StartPoint().Row) + 1,
				})
			}
		}
	}

	childInClass := inClass
	if w.g.containers[typ] {
		childInClass = true
	}

	if kind := w.g.blockKind(n, inClass); kind != "" {
		block := &Block{
			Name:      w.nameOf(n, parent),
			Kind:      kind,
			StartLine: line,
			EndLine:   endLine(n),
			Depth:     len(w.stack),
		}

		w.top().Children = append(w.top().Children, block)
		w.stack = append(w.stack, block)

		defer func() { w.stack = w.stack[:len(w.stack)-1] }()

		childInClass = kind == KindClass
	}

	for i := range n.NamedChildCount() {
		w.walk(n.NamedChild(i), n, childInClass)
	}
}

// collect returns the normalized tokens of a statement, leaving out nested
// statements, which are collected on their own.
func (w *tsWalker) collect(stmt sitter.Node) []string {
	var tokens []string

	var visit func(n sitter.Node)

	visit = func(n sitter.Node) {
		for i := range n.ChildCount() {
			child := n.Child(i)
			typ := child.Type()

			switch {
			case w.g.comments[typ]:
				continue
			case w.g.isStatement(child, n):
				continue
			case child.IsNamed() && w.g.literals[typ]:
				tokens = append(tokens, TokenLiteral)
			case child.ChildCount() == 0:
				if tok := leafToken(child, typ); strings.TrimSpace(tok) != "" {
					tokens = append(tokens, tok)
				}
			default:
				visit(child)
			}
		}
	}

	visit(stmt)

	return tokens
}

func leafToken(n sitter.Node, typ string) string {
	if !n.IsNamed() {
		return typ
	}

	if isIdentifierKind(typ) {
		return TokenIdentifier
	}

	if literalWords[typ] {
		return TokenLiteral
	}

	return typ
}

// nameOf resolves a block name from the node's name field, its declarator
// chain, or the assignment it is the value of.
func (w *tsWalker) nameOf(n, parent sitter.Node) string {
	cur := n

	for depth := 0; depth < nameLookupDepth && !cur.IsNull(); depth++ {
		if name := cur.ChildByFieldName("name"); !name.IsNull() {
			return w.text(name)
		}

		if depth > 0 && isIdentifierKind(cur.Type()) {
			return w.text(cur)
		}

		cur = cur.ChildByFieldName("declarator")
	}

	if !parent.IsNull() {
		for _, field := range []string{"name", "left", "key"} {
			candidate := parent.ChildByFieldName(field)
			if candidate.IsNull() || candidate.StartByte() == n.StartByte() {
				continue
			}

			text := w.text(candidate)
			if text != "" && len(text) <= maxDerivedNameLen && !strings.ContainsRune(text, '\n') {
				return text
			}
		}
	}

	return anonymousName
}

func (w *tsWalker) text(n sitter.Node) string {
	start, end := int(n.StartByte()), int(n.EndByte())
	if start < 0 || end > len(w.src) || start > end {
		return ""
	}

	return string(w.src[start:end])
}

// firstError descends into the first subtree reporting a syntax error.
func firstError(n sitter.Node) sitter.Node {
	if n.Type() == "ERROR" {
		return n
	}

	for i := range n.ChildCount() {
		child := n.Child(i)
		if child.HasError() || child.Type() == "ERROR" {
			return firstError(child)
		}
	}

	return n
}

func snippet(src []byte, n sitter.Node) string {
	const maxSnippet = 32

	start, end := int(n.StartByte()), int(n.EndByte())
	if start >= len(src) {
		return ""
	}

	if end > len(src) {
		end = len(src)
	}

	if end-start > maxSnippet {
		end = start + maxSnippet
	}

	return strings.TrimSpace(string(src[start:end]))
}

func endLine(n sitter.Node) int {
	start, end := n.StartPoint(), n.EndPoint()
	if end.Column == 0 && end.Row > start.Row {
		return int(end.Row)
	}

	return int(end.Row) + 1
}

func moduleName(unitID string) string {
	if unitID == "" {
		return "<module>"
	}

	return path.Base(unitID)
}

// lineCount counts physical lines; a trailing newline does not open a new line.
func lineCount(text string) int {
	return textutil.CountLines([]byte(text))
}
