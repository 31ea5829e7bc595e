package source

import (
	"errors"
	"fmt"
)

// closers carry no statement shape on their own.
var closers = wordSet(")", "]", "}", ",", ";", "{")

// continuationOps keep a logical line open across a newline.
var continuationOps = wordSet(
	",", "=", "+", "-", "*", "/", "%", "&&", "||", "&", "|", "^", ".", "->", "=>", "?", ":",
	"??", "+=", "-=", "*=", "/=", "==", "!=", "<", ">", "<=", ">=", "?.",
)

// leadingContinuations continue the previous line when they start the next one.
var leadingContinuations = wordSet(".", "?.", "&&", "||", "?", ":", "??", "+", "|>")

// compoundKeywords open an indented suite after a top-level colon.
var compoundKeywords = wordSet(
	"if", "elif", "else", "for", "while", "try", "except", "finally", "with", "match", "case",
	"async", "of", "when",
)

// buildFallback models text with the profile lexer and a scope approximation.
func buildFallback(unitID, dialect, text string) (*Unit, error) {
	profile := ProfileFor(dialect)

	tokens, err := Lex(text, profile)
	if err != nil {
		var lexErr *LexError
		if errors.As(err, &lexErr) {
			return nil, newParseError(unitID, dialect, lexErr.Line, lexErr.Column+1, "%s", lexErr.Reason)
		}

		return nil, fmt.Errorf("lex %s: %w", unitID, err)
	}

	code := tokens[:0:0]

	for _, tok := range tokens {
		if tok.Kind != TokComment {
			code = append(code, tok)
		}
	}

	module := &Block{
		Name:      moduleName(unitID),
		Kind:      KindModule,
		StartLine: 1,
		EndLine:   lineCount(text),
	}

	sc := scopeScanner{unitID: unitID, dialect: dialect, profile: profile, module: module}

	if profile.Style == ScopeIndent {
		err = sc.indent(code)
	} else {
		err = sc.brace(code)
	}

	if err != nil {
		return nil, err
	}

	return &Unit{
		ID:      unitID,
		Text:    text,
		Dialect: dialect,
		Backend: BackendFallback,
		Root:    module,
	}, nil
}

type scopeFrame struct {
	block  *Block
	indent int
	parens int
}

type scopeScanner struct {
	unitID  string
	dialect string
	profile *Profile
	module  *Block
	frames  []*scopeFrame
	delims  []Token
	cur     []Token
}

func (sc *scopeScanner) parseError(tok Token, format string, args ...any) error {
	return newParseError(sc.unitID, sc.dialect, tok.Line, tok.Col+1, format, args...)
}

func (sc *scopeScanner) frame() *scopeFrame {
	return sc.frames[len(sc.frames)-1]
}

// innermost returns the closest enclosing block.
func (sc *scopeScanner) innermost() *Block {
	for i := len(sc.frames) - 1; i >= 0; i-- {
		if sc.frames[i].block != nil {
			return sc.frames[i].block
		}
	}

	return sc.module
}

func (sc *scopeScanner) depth() int {
	depth := 0

	for _, fr := range sc.frames {
		if fr.block != nil {
			depth++
		}
	}

	return depth
}

func (sc *scopeScanner) openBlock(name string, kind Kind, startLine int) *Block {
	b := &Block{Name: name, Kind: kind, StartLine: startLine, EndLine: startLine, Depth: sc.depth()}
	parent := sc.innermost()
	parent.Children = append(parent.Children, b)

	return b
}

// addStatement normalizes toks and attributes the statement to every open block.
func (sc *scopeScanner) addStatement(toks []Token) {
	if len(toks) == 0 {
		return
	}

	stmt := Statement{Line: toks[0].Line}
	significant := false

	for _, tok := range toks {
		norm := normalizeToken(tok, sc.profile)
		if norm == "" || norm == "{" || norm == "}" {
			continue
		}

		if !closers[norm] {
			significant = true
		}

		stmt.Tokens = append(stmt.Tokens, norm)
	}

	if !significant {
		return
	}

	for _, fr := range sc.frames {
		if fr.block != nil {
			fr.block.Statements = append(fr.block.Statements, stmt)
		}
	}
}

func (sc *scopeScanner) flush() {
	sc.addStatement(sc.cur)
	sc.cur = nil
}

// addBranches records the branch points found in toks on the innermost block.
func (sc *scopeScanner) addBranches(toks []Token, lineStart bool) {
	target := sc.innermost()

	for i := range toks {
		if kind, ok := branchAt(sc.profile, toks, i, lineStart && i == 0); ok {
			target.Branches = append(target.Branches, BranchPoint{Kind: kind, Line: toks[i].Line})
		}
	}
}

// branchAt classifies toks[i] as a branch point.
func branchAt(p *Profile, toks []Token, i int, lineStart bool) (BranchKind, bool) {
	tok := toks[i]

	switch tok.Kind {
	case TokIdent:
		switch {
		case p.ElifKeywords[tok.Text]:
			return BranchElif, true
		case p.IfKeywords[tok.Text]:
			if i > 0 && toks[i-1].Text == "else" {
				return BranchElif, true
			}

			return BranchIf, true
		case p.LoopKeywords[tok.Text]:
			return BranchLoop, true
		case p.CaseKeywords[tok.Text]:
			if p.Style == ScopeIndent && !lineStart {
				return "", false
			}

			return BranchCase, true
		case p.CatchKeywords[tok.Text]:
			return BranchCatch, true
		case p.BoolOperators[tok.Text]:
			return BranchBoolean, true
		}
	case TokOperator:
		if p.BoolOperators[tok.Text] {
			return BranchBoolean, true
		}

		if p.Ternary && tok.Text == "?" && isTernaryQuestion(toks, i) {
			return BranchTernary, true
		}
	case TokNumber, TokString, TokComment, TokContinuation:
	}

	return "", false
}

func isTernaryQuestion(toks []Token, i int) bool {
	if i+1 >= len(toks) {
		return false
	}

	switch toks[i+1].Text {
	case ":", ")", ",", "=", ";", ">", "]", ".":
		return false
	}

	return true
}

// brace models scopes delimited by braces.
func (sc *scopeScanner) brace(toks []Token) error {
	sc.frames = []*scopeFrame{{block: sc.module}}
	joinNext := false

	for i, tok := range toks {
		if tok.Kind == TokContinuation {
			joinNext = true

			continue
		}

		if i > 0 && !joinNext && sc.lineBreak(toks[i-1], tok) {
			sc.flush()
		}

		joinNext = false

		if kind, ok := branchAt(sc.profile, toks, i, len(sc.cur) == 0); ok {
			sc.innermost().Branches = append(sc.innermost().Branches, BranchPoint{Kind: kind, Line: tok.Line})
		}

		if tok.Kind != TokOperator {
			sc.cur = append(sc.cur, tok)

			continue
		}

		var err error

		switch tok.Text {
		case "(", "[":
			sc.delims = append(sc.delims, tok)
			sc.frame().parens++
			sc.cur = append(sc.cur, tok)
		case ")", "]":
			err = sc.closeDelim(tok)
			sc.cur = append(sc.cur, tok)
		case "{":
			sc.openBrace(tok)
		case "}":
			err = sc.closeBrace(tok)
		case ";":
			if sc.frame().parens == 0 {
				sc.flush()
			} else {
				sc.cur = append(sc.cur, tok)
			}
		default:
			sc.cur = append(sc.cur, tok)
		}

		if err != nil {
			return err
		}
	}

	if len(sc.delims) > 0 {
		open := sc.delims[len(sc.delims)-1]

		return sc.parseError(open, "unclosed %q", open.Text)
	}

	sc.flush()

	return nil
}

func (sc *scopeScanner) lineBreak(prev, tok Token) bool {
	if tok.Line <= prev.EndLine || sc.frame().parens > 0 {
		return false
	}

	if prev.Kind == TokOperator && continuationOps[prev.Text] {
		return false
	}

	return tok.Kind != TokOperator || !leadingContinuations[tok.Text]
}

func (sc *scopeScanner) closeDelim(tok Token) error {
	want := "("
	if tok.Text == "]" {
		want = "["
	}

	if len(sc.delims) == 0 {
		return sc.parseError(tok, "unexpected %q", tok.Text)
	}

	top := sc.delims[len(sc.delims)-1]
	if top.Text != want {
		return sc.parseError(tok, "mismatched %q, %q opened on line %d", tok.Text, top.Text, top.Line)
	}

	sc.delims = sc.delims[:len(sc.delims)-1]
	sc.frame().parens--

	return nil
}

func (sc *scopeScanner) openBrace(tok Token) {
	header := sc.cur
	name, kind := classifyBraceHeader(sc.profile, header, sc.innermost().Kind == KindClass)

	startLine := tok.Line
	if len(header) > 0 {
		startLine = header[0].Line
	}

	sc.flush()
	sc.delims = append(sc.delims, tok)

	fr := &scopeFrame{}
	if kind != "" {
		fr.block = sc.openBlock(name, kind, startLine)
	}

	sc.frames = append(sc.frames, fr)
}

func (sc *scopeScanner) closeBrace(tok Token) error {
	if len(sc.frames) == 1 || len(sc.delims) == 0 {
		return sc.parseError(tok, "unexpected \"}\"")
	}

	top := sc.delims[len(sc.delims)-1]
	if top.Text != "{" {
		return sc.parseError(tok, "mismatched \"}\", %q opened on line %d", top.Text, top.Line)
	}

	sc.delims = sc.delims[:len(sc.delims)-1]
	sc.flush()

	fr := sc.frame()
	sc.frames = sc.frames[:len(sc.frames)-1]

	if fr.block != nil {
		fr.block.EndLine = tok.Line
	}

	return nil
}

// classifyBraceHeader decides whether the tokens before "{" declare a class or
// a function, and returns its name and kind.
func classifyBraceHeader(p *Profile, header []Token, inClass bool) (string, Kind) {
	if len(header) == 0 || controlKeywords[header[0].Text] {
		return "", ""
	}

	for i, tok := range header {
		if tok.Kind != TokIdent || !p.ClassKeywords[tok.Text] {
			continue
		}

		if i > 0 && header[i-1].Text == "." {
			continue
		}

		if i+1 < len(header) && header[i+1].Kind == TokIdent {
			return header[i+1].Text, KindClass
		}
	}

	for i, tok := range header {
		if tok.Kind != TokIdent || !p.DefKeywords[tok.Text] {
			continue
		}

		name, receiver := defName(p, header[i+1:])
		if name == "" {
			name = assignedName(header[:i])
		}

		if receiver || inClass {
			return name, KindMethod
		}

		return name, KindFunction
	}

	if len(p.DefKeywords) > 0 && !inClass {
		return "", ""
	}

	if name, ok := cStyleName(p, header); ok {
		if inClass {
			return name, KindMethod
		}

		return name, KindFunction
	}

	return "", ""
}

// defName reads the name following a definition keyword. A parenthesized
// group right after the keyword is a receiver when a name follows it.
func defName(p *Profile, rest []Token) (string, bool) {
	if len(rest) == 0 {
		return "", false
	}

	if rest[0].Text == "(" {
		end := matchParen(rest, 0)
		if end > 0 && end+2 < len(rest) && rest[end+1].Kind == TokIdent && rest[end+2].Text == "(" {
			return rest[end+1].Text, true
		}

		return "", false
	}

	name := ""

	for _, tok := range rest {
		if tok.Text == "(" {
			break
		}

		if tok.Kind == TokIdent && !p.IsKeyword(tok.Text) {
			name = tok.Text
		}
	}

	return name, false
}

// assignedName finds "name =" or "name :" right before an anonymous definition.
func assignedName(before []Token) string {
	n := len(before)
	if n >= 2 && before[n-2].Kind == TokIdent && (before[n-1].Text == "=" || before[n-1].Text == ":") {
		return before[n-2].Text
	}

	return anonymousName
}

// cStyleName matches "Ident ( ... )" headers of keyword-less function declarations.
func cStyleName(p *Profile, header []Token) (string, bool) {
	for i, tok := range header {
		if tok.Text == "=" || tok.Text == "=>" || tok.Text == "->" && i == 0 {
			return "", false
		}

		if tok.Text != "(" {
			continue
		}

		if i == 0 {
			return "", false
		}

		prev := header[i-1]
		if prev.Kind != TokIdent || controlKeywords[prev.Text] || p.IsKeyword(prev.Text) {
			return "", false
		}

		if i >= 2 && (header[i-2].Text == "." || header[i-2].Text == "new") {
			return "", false
		}

		if matchParen(header, i) < 0 {
			return "", false
		}

		return prev.Text, true
	}

	return "", false
}

// matchParen returns the index of the parenthesis closing toks[open], or -1.
func matchParen(toks []Token, open int) int {
	depth := 0

	for i := open; i < len(toks); i++ {
		switch toks[i].Text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// indent models scopes delimited by indentation.
func (sc *scopeScanner) indent(toks []Token) error {
	lines, err := sc.logicalLines(toks)
	if err != nil {
		return err
	}

	sc.frames = []*scopeFrame{{block: sc.module, indent: -1}}
	levels := []int{0}
	lastEnd := 0

	for _, line := range lines {
		col := line[0].Col

		for len(sc.frames) > 1 && sc.frame().indent >= col {
			sc.frame().block.EndLine = lastEnd
			sc.frames = sc.frames[:len(sc.frames)-1]
		}

		if col > levels[len(levels)-1] {
			levels = append(levels, col)
		} else {
			for col < levels[len(levels)-1] {
				levels = levels[:len(levels)-1]
			}

			if col != levels[len(levels)-1] {
				return sc.parseError(line[0], "unindent does not match any outer indentation level")
			}
		}

		header, body := splitSuite(line)
		name, kind := classifyIndentHeader(sc.profile, header, sc.innermost().Kind == KindClass)

		sc.addBranches(header, true)
		sc.addStatement(header)

		if kind != "" {
			b := sc.openBlock(name, kind, header[0].Line)
			sc.frames = append(sc.frames, &scopeFrame{block: b, indent: col})
		}

		for _, stmt := range splitSemicolons(body) {
			sc.addBranches(stmt, true)
			sc.addStatement(stmt)
		}

		lastEnd = line[len(line)-1].EndLine
		if kind != "" {
			sc.frame().block.EndLine = lastEnd
		}
	}

	for len(sc.frames) > 1 {
		sc.frame().block.EndLine = lastEnd
		sc.frames = sc.frames[:len(sc.frames)-1]
	}

	return nil
}

// logicalLines joins physical lines that continue inside brackets or after a
// backslash, checking delimiter balance on the way.
func (sc *scopeScanner) logicalLines(toks []Token) ([][]Token, error) {
	var (
		lines    [][]Token
		cur      []Token
		joinNext bool
	)

	for i, tok := range toks {
		if tok.Kind == TokContinuation {
			joinNext = true

			continue
		}

		if i > 0 && len(cur) > 0 && !joinNext && len(sc.delims) == 0 && tok.Line > toks[i-1].EndLine {
			lines = append(lines, cur)
			cur = nil
		}

		joinNext = false

		if tok.Kind == TokOperator {
			switch tok.Text {
			case "(", "[", "{":
				sc.delims = append(sc.delims, tok)
			case ")", "]", "}":
				err := sc.popDelim(tok)
				if err != nil {
					return nil, err
				}
			}
		}

		cur = append(cur, tok)
	}

	if len(sc.delims) > 0 {
		open := sc.delims[len(sc.delims)-1]

		return nil, sc.parseError(open, "unclosed %q", open.Text)
	}

	if len(cur) > 0 {
		lines = append(lines, cur)
	}

	return lines, nil
}

func (sc *scopeScanner) popDelim(tok Token) error {
	want := map[string]string{")": "(", "]": "[", "}": "{"}[tok.Text]

	if len(sc.delims) == 0 {
		return sc.parseError(tok, "unexpected %q", tok.Text)
	}

	top := sc.delims[len(sc.delims)-1]
	if top.Text != want {
		return sc.parseError(tok, "mismatched %q, %q opened on line %d", tok.Text, top.Text, top.Line)
	}

	sc.delims = sc.delims[:len(sc.delims)-1]

	return nil
}

// splitSuite separates "header:" from an inline suite on the same line.
func splitSuite(line []Token) ([]Token, []Token) {
	first := line[0].Text
	if !compoundKeywords[first] && !isDefinitionWord(first) {
		return line, nil
	}

	depth := 0

	for i, tok := range line {
		switch tok.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ":":
			if depth == 0 {
				return line[:i+1], line[i+1:]
			}
		}
	}

	return line, nil
}

func isDefinitionWord(word string) bool {
	switch word {
	case "def", "class", "proc", "func", "method", "iterator", "template", "macro", "object", "type":
		return true
	}

	return false
}

func splitSemicolons(toks []Token) [][]Token {
	if len(toks) == 0 {
		return nil
	}

	var (
		out   [][]Token
		start int
	)

	for i, tok := range toks {
		if tok.Text == ";" {
			if i > start {
				out = append(out, toks[start:i])
			}

			start = i + 1
		}
	}

	if start < len(toks) {
		out = append(out, toks[start:])
	}

	return out
}

// classifyIndentHeader recognizes "def name" and "class name" headers.
func classifyIndentHeader(p *Profile, header []Token, inClass bool) (string, Kind) {
	toks := header
	if len(toks) > 0 && toks[0].Text == "async" {
		toks = toks[1:]
	}

	if len(toks) < 2 || toks[1].Kind != TokIdent {
		return "", ""
	}

	switch {
	case p.ClassKeywords[toks[0].Text]:
		return toks[1].Text, KindClass
	case p.DefKeywords[toks[0].Text]:
		if inClass {
			return toks[1].Text, KindMethod
		}

		return toks[1].Text, KindFunction
	}

	return "", ""
}
