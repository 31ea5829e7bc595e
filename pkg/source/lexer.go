package source

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TokenKind classifies lexer output.
type TokenKind uint8

// Token kinds.
const (
	TokIdent TokenKind = iota
	TokNumber
	TokString
	TokOperator
	TokComment
	TokContinuation
)

// Token is a lexeme with its 1-based line span and 0-based starting column.
type Token struct {
	Kind    TokenKind
	Text    string
	Line    int
	EndLine int
	Col     int
}

// LexError reports text the profile lexer cannot tokenize.
type LexError struct {
	Line   int
	Column int
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Reason)
}

// operators are matched longest first.
var operators = []string{
	"<<=", ">>=", "**=", "===", "!==", "...", "<=>", "//=",
	"->", "=>", "::", "&&", "||", "==", "!=", "<=", ">=", "++", "--", "+=", "-=", "*=",
	"/=", "%=", "&=", "|=", "^=", "<<", ">>", "**", "//", "?.", "??", ":=", "..",
}

type lexer struct {
	text    string
	profile *Profile
	pos     int
	line    int
	lineAt  int
	tokens  []Token
}

// Lex tokenizes text under the given profile.
func Lex(text string, profile *Profile) ([]Token, error) {
	if profile == nil {
		profile = ProfileFor(GenericDialect)
	}

	lx := &lexer{text: text, profile: profile, line: 1}

	err := lx.run()
	if err != nil {
		return nil, err
	}

	return lx.tokens, nil
}

func (lx *lexer) run() error {
	for lx.pos < len(lx.text) {
		c := lx.text[lx.pos]

		switch {
		case c == '\n':
			lx.newline(lx.pos)
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			lx.pos++
		case c == '\\' && lx.atLineEnd(lx.pos+1):
			lx.emit(TokContinuation, lx.pos, lx.pos+1)
		case lx.lineCommentAt():
			lx.lineComment()
		case lx.profile.BlockOpen != "" && strings.HasPrefix(lx.text[lx.pos:], lx.profile.BlockOpen):
			err := lx.blockComment()
			if err != nil {
				return err
			}
		case c == '/' && lx.profile.RegexLiterals:
			lx.slash()
		case lx.profile.TripleQuotes && lx.tripleQuoteAt():
			err := lx.tripleString()
			if err != nil {
				return err
			}
		case strings.IndexByte(lx.profile.Quotes, c) >= 0 || strings.IndexByte(lx.profile.MultilineQuotes, c) >= 0:
			err := lx.quoted(c)
			if err != nil {
				return err
			}
		case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.text) && isDigit(lx.text[lx.pos+1])):
			lx.number()
		case isIdentStart(c):
			lx.ident()
		default:
			lx.operator()
		}
	}

	return nil
}

func (lx *lexer) newline(at int) {
	lx.line++
	lx.lineAt = at + 1
}

func (lx *lexer) atLineEnd(i int) bool {
	if i < len(lx.text) && lx.text[i] == '\r' {
		i++
	}

	return i < len(lx.text) && lx.text[i] == '\n'
}

// emit appends text[start:end] and advances past it, tracking embedded newlines.
func (lx *lexer) emit(kind TokenKind, start, end int) {
	lexeme := lx.text[start:end]
	tok := Token{Kind: kind, Text: lexeme, Line: lx.line, Col: start - lx.lineAt}

	for i := start; i < end; i++ {
		if lx.text[i] == '\n' {
			lx.newline(i)
		}
	}

	tok.EndLine = lx.line
	lx.tokens = append(lx.tokens, tok)
	lx.pos = end
}

func (lx *lexer) fail(reason string) error {
	return &LexError{Line: lx.line, Column: lx.pos - lx.lineAt, Reason: reason}
}

func (lx *lexer) lineCommentAt() bool {
	rest := lx.text[lx.pos:]

	for _, marker := range lx.profile.LineComments {
		if !strings.HasPrefix(rest, marker) {
			continue
		}

		if lx.profile.BlockOpen != "" && strings.HasPrefix(rest, lx.profile.BlockOpen) &&
			len(lx.profile.BlockOpen) > len(marker) {
			return false
		}

		if lx.profile.CommentBoundary && lx.pos > lx.lineAt {
			prev := lx.text[lx.pos-1]
			if prev != ' ' && prev != '\t' && prev != ';' {
				return false
			}
		}

		return true
	}

	return false
}

func (lx *lexer) lineComment() {
	end := strings.IndexByte(lx.text[lx.pos:], '\n')
	if end < 0 {
		end = len(lx.text)
	} else {
		end += lx.pos
	}

	if end > lx.pos && lx.text[end-1] == '\r' {
		end--
	}

	lx.emit(TokComment, lx.pos, end)
}

func (lx *lexer) blockComment() error {
	open := len(lx.profile.BlockOpen)

	end := strings.Index(lx.text[lx.pos+open:], lx.profile.BlockClose)
	if end < 0 {
		return lx.fail("unterminated block comment")
	}

	lx.emit(TokComment, lx.pos, lx.pos+open+end+len(lx.profile.BlockClose))

	return nil
}

func (lx *lexer) tripleQuoteAt() bool {
	rest := lx.text[lx.pos:]

	return strings.HasPrefix(rest, `"""`) || strings.HasPrefix(rest, `'''`)
}

func (lx *lexer) tripleString() error {
	delim := lx.text[lx.pos : lx.pos+3]

	for i := lx.pos + 3; i < len(lx.text); i++ {
		if lx.text[i] == '\\' {
			i++

			continue
		}

		if strings.HasPrefix(lx.text[i:], delim) {
			lx.emit(TokString, lx.pos, i+3)

			return nil
		}
	}

	return lx.fail("unterminated triple-quoted string")
}

func (lx *lexer) quoted(quote byte) error {
	multiline := strings.IndexByte(lx.profile.MultilineQuotes, quote) >= 0

	if quote == '\'' && lx.profile.Lifetimes && !lx.charLiteralAt() {
		lx.emit(TokOperator, lx.pos, lx.pos+1)

		return nil
	}

	for i := lx.pos + 1; i < len(lx.text); i++ {
		switch lx.text[i] {
		case '\\':
			if quote != '`' {
				i++
			}
		case quote:
			lx.emit(TokString, lx.pos, i+1)

			return nil
		case '\n':
			if !multiline {
				return lx.unterminated(quote)
			}
		}
	}

	return lx.unterminated(quote)
}

// charLiteralAt tells a character literal from a lifetime or label marker.
func (lx *lexer) charLiteralAt() bool {
	rest := lx.text[lx.pos+1:]
	if rest == "" {
		return false
	}

	if rest[0] == '\\' {
		return true
	}

	_, size := utf8.DecodeRuneInString(rest)

	return size < len(rest) && rest[size] == '\''
}

func (lx *lexer) unterminated(quote byte) error {
	if quote == '\'' && lx.profile.Lifetimes {
		lx.emit(TokOperator, lx.pos, lx.pos+1)

		return nil
	}

	return lx.fail("unterminated string literal")
}

// regexPrefixWords are the keywords after which a slash opens a regex literal.
var regexPrefixWords = wordSet(
	"return", "typeof", "instanceof", "in", "of", "new", "delete", "void", "throw",
	"case", "do", "else", "yield", "await",
)

// slash lexes a regex literal where an operand is expected, and the division
// operator otherwise.
func (lx *lexer) slash() {
	if lx.operandExpected() {
		if end := lx.regexEnd(); end > 0 {
			lx.emit(TokString, lx.pos, end)

			return
		}
	}

	lx.operator()
}

func (lx *lexer) operandExpected() bool {
	for i := len(lx.tokens) - 1; i >= 0; i-- {
		tok := lx.tokens[i]

		switch tok.Kind {
		case TokComment, TokContinuation:
			continue
		case TokOperator:
			return tok.Text != ")" && tok.Text != "]" && tok.Text != "}"
		case TokIdent:
			return regexPrefixWords[tok.Text]
		default:
			return false
		}
	}

	return true
}

// regexEnd returns the offset just past the regex literal at pos, flags
// included, or 0 when the line ends first.
func (lx *lexer) regexEnd() int {
	inClass := false

	for i := lx.pos + 1; i < len(lx.text); i++ {
		switch lx.text[i] {
		case '\\':
			i++
		case '\n':
			return 0
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if inClass {
				continue
			}

			end := i + 1
			for end < len(lx.text) && isIdentPart(lx.text[end]) {
				end++
			}

			return end
		}
	}

	return 0
}

func (lx *lexer) number() {
	end := lx.pos + 1

	for end < len(lx.text) {
		c := lx.text[end]
		if isIdentPart(c) || (c == '.' && end+1 < len(lx.text) && isDigit(lx.text[end+1])) {
			end++

			continue
		}

		break
	}

	lx.emit(TokNumber, lx.pos, end)
}

func (lx *lexer) ident() {
	end := lx.pos + 1
	for end < len(lx.text) && isIdentPart(lx.text[end]) {
		end++
	}

	lx.emit(TokIdent, lx.pos, end)
}

func (lx *lexer) operator() {
	rest := lx.text[lx.pos:]

	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			lx.emit(TokOperator, lx.pos, lx.pos+len(op))

			return
		}
	}

	lx.emit(TokOperator, lx.pos, lx.pos+1)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// normalizeToken maps a lexeme to its normalized form under a profile.
func normalizeToken(tok Token, profile *Profile) string {
	switch tok.Kind {
	case TokNumber, TokString:
		return TokenLiteral
	case TokIdent:
		if literalWords[tok.Text] {
			return TokenLiteral
		}

		if profile.IsKeyword(tok.Text) || controlKeywords[tok.Text] {
			return tok.Text
		}

		return TokenIdentifier
	case TokOperator:
		return tok.Text
	case TokComment, TokContinuation:
		return ""
	}

	return tok.Text
}
