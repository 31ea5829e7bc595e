package source

import (
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/src-d/enry/v2"
)

// GenericDialect models text whose dialect is unknown.
const GenericDialect = "generic"

// ScopeStyle selects how the fallback backend delimits scopes.
type ScopeStyle int

// Scope styles.
const (
	ScopeBrace ScopeStyle = iota
	ScopeIndent
)

// Profile is the lexical description of a dialect. The lexer, the fallback
// scope pass and the raw size analyzer are all driven by it.
type Profile struct {
	Name            string
	LineComments    []string
	BlockOpen       string
	BlockClose      string
	Quotes          string
	MultilineQuotes string
	TripleQuotes    bool
	Lifetimes       bool
	CommentBoundary bool
	RegexLiterals   bool
	Style           ScopeStyle
	Ternary         bool

	DefKeywords   map[string]bool
	ClassKeywords map[string]bool
	IfKeywords    map[string]bool
	ElifKeywords  map[string]bool
	LoopKeywords  map[string]bool
	CaseKeywords  map[string]bool
	CatchKeywords map[string]bool
	BoolOperators map[string]bool
}

// IsKeyword reports whether word is reserved in this profile.
func (p *Profile) IsKeyword(word string) bool {
	return commonKeywords[word] || p.DefKeywords[word] || p.ClassKeywords[word] ||
		p.IfKeywords[word] || p.ElifKeywords[word] || p.LoopKeywords[word] ||
		p.CaseKeywords[word] || p.CatchKeywords[word] || p.BoolOperators[word]
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}

	return set
}

var commonKeywords = wordSet(
	"return", "else", "do", "try", "finally", "switch", "break", "continue", "pass",
	"yield", "await", "async", "in", "is", "not", "import", "from", "package", "var",
	"let", "const", "val", "static", "public", "private", "protected", "final", "throw",
	"throws", "raise", "with", "as", "lambda", "del", "global", "nonlocal", "assert",
	"new", "delete", "goto", "default", "extends", "implements", "using", "namespace",
	"end", "then", "fi", "done", "esac", "begin", "unless", "self", "this", "super",
	"override", "abstract", "virtual", "void", "int", "char", "float", "double", "bool",
	"string", "go", "defer", "select", "chan", "map", "range", "type", "impl", "mut",
	"pub", "use", "mod", "where", "match", "typeof", "instanceof", "sizeof", "module",
)

var literalWords = wordSet(
	"true", "false", "null", "nil", "none", "None", "True", "False", "undefined", "NULL",
)

// controlKeywords never name a function even when followed by a parenthesis.
var controlKeywords = wordSet(
	"if", "else", "elif", "elsif", "for", "foreach", "while", "until", "switch", "catch",
	"do", "try", "return", "using", "lock", "fixed", "synchronized", "when", "with",
	"new", "throw", "sizeof", "typeof", "unless", "match", "guard", "defer", "select",
)

var cLikeBranches = struct {
	ifs, elifs, loops, cases, catches, bools map[string]bool
}{
	ifs:     wordSet("if"),
	elifs:   wordSet(),
	loops:   wordSet("for", "foreach", "while"),
	cases:   wordSet("case"),
	catches: wordSet("catch"),
	bools:   wordSet("&&", "||"),
}

func braceProfile(name string, defs, classes []string, mutate func(*Profile)) *Profile {
	p := &Profile{
		Name:          name,
		LineComments:  []string{"//"},
		BlockOpen:     "/*",
		BlockClose:    "*/",
		Quotes:        `"'`,
		Style:         ScopeBrace,
		DefKeywords:   wordSet(defs...),
		ClassKeywords: wordSet(classes...),
		IfKeywords:    cLikeBranches.ifs,
		ElifKeywords:  cLikeBranches.elifs,
		LoopKeywords:  cLikeBranches.loops,
		CaseKeywords:  cLikeBranches.cases,
		CatchKeywords: cLikeBranches.catches,
		BoolOperators: cLikeBranches.bools,
	}

	if mutate != nil {
		mutate(p)
	}

	return p
}

func indentProfile(name string, mutate func(*Profile)) *Profile {
	p := &Profile{
		Name:          name,
		LineComments:  []string{"#"},
		Quotes:        `"'`,
		TripleQuotes:  true,
		Style:         ScopeIndent,
		Ternary:       false,
		DefKeywords:   wordSet("def", "proc", "func", "method", "iterator", "template", "macro"),
		ClassKeywords: wordSet("class", "object"),
		IfKeywords:    wordSet("if"),
		ElifKeywords:  wordSet("elif"),
		LoopKeywords:  wordSet("for", "while"),
		CaseKeywords:  wordSet("case", "of"),
		CatchKeywords: wordSet("except"),
		BoolOperators: wordSet("and", "or"),
	}

	if mutate != nil {
		mutate(p)
	}

	return p
}

var profiles = map[string]*Profile{
	"python": indentProfile("python", nil),
	"nim": indentProfile("nim", func(p *Profile) {
		p.BlockOpen, p.BlockClose = "#[", "]#"
		p.ClassKeywords = wordSet("type", "object")
	}),
	"coffeescript": indentProfile("coffeescript", func(p *Profile) {
		p.BlockOpen, p.BlockClose = "###", "###"
		p.DefKeywords = wordSet()
		p.ElifKeywords = wordSet()
		p.CaseKeywords = wordSet("when")
		p.CatchKeywords = wordSet("catch")
		p.BoolOperators = wordSet("and", "or", "&&", "||")
	}),
	"go": braceProfile("go", []string{"func"}, []string{"struct", "interface"}, func(p *Profile) {
		p.MultilineQuotes = "`"
	}),
	"javascript": braceProfile("javascript", []string{"function"}, []string{"class"}, func(p *Profile) {
		p.MultilineQuotes = "`"
		p.RegexLiterals = true
		p.Ternary = true
		p.BoolOperators = wordSet("&&", "||", "??")
	}),
	"typescript": braceProfile("typescript", []string{"function"}, []string{"class", "interface", "enum"},
		func(p *Profile) {
			p.MultilineQuotes = "`"
			p.RegexLiterals = true
			p.Ternary = true
			p.BoolOperators = wordSet("&&", "||", "??")
		}),
	"java": braceProfile("java", nil, []string{"class", "interface", "enum", "record"}, func(p *Profile) {
		p.Ternary = true
		p.TripleQuotes = true
	}),
	"c": braceProfile("c", nil, []string{"struct", "union"}, func(p *Profile) {
		p.Ternary = true
	}),
	"cpp": braceProfile("cpp", nil, []string{"class", "struct", "union"}, func(p *Profile) {
		p.Ternary = true
	}),
	"c_sharp": braceProfile("c_sharp", nil, []string{"class", "struct", "interface", "record", "enum"},
		func(p *Profile) {
			p.MultilineQuotes = `"`
			p.Quotes = `'`
			p.BoolOperators = wordSet("&&", "||", "??")
		}),
	"rust": braceProfile("rust", []string{"fn"}, []string{"struct", "enum", "trait", "union"}, func(p *Profile) {
		p.Lifetimes = true
		p.MultilineQuotes = `"`
		p.Quotes = `'`
		p.LoopKeywords = wordSet("for", "while", "loop")
		p.CaseKeywords = wordSet()
	}),
	"kotlin": braceProfile("kotlin", []string{"fun"}, []string{"class", "interface", "object"}, func(p *Profile) {
		p.TripleQuotes = true
		p.CaseKeywords = wordSet()
	}),
	"swift": braceProfile("swift", []string{"func"}, []string{"class", "struct", "protocol", "enum", "extension"},
		func(p *Profile) {
			p.TripleQuotes = true
			p.LoopKeywords = wordSet("for", "while", "repeat")
		}),
	"scala": braceProfile("scala", []string{"def"}, []string{"class", "object", "trait"}, func(p *Profile) {
		p.TripleQuotes = true
	}),
	"php": braceProfile("php", []string{"function"}, []string{"class", "interface", "trait", "enum"},
		func(p *Profile) {
			p.LineComments = []string{"//", "#"}
			p.MultilineQuotes = `"'`
			p.Quotes = ""
			p.Ternary = true
			p.LoopKeywords = wordSet("for", "foreach", "while")
			p.ElifKeywords = wordSet("elseif")
			p.BoolOperators = wordSet("&&", "||", "and", "or", "??")
		}),
	"dart": braceProfile("dart", nil, []string{"class", "mixin", "enum", "extension"}, func(p *Profile) {
		p.TripleQuotes = true
	}),
	"groovy": braceProfile("groovy", []string{"def"}, []string{"class", "interface", "trait", "enum"},
		func(p *Profile) {
			p.TripleQuotes = true
			p.Ternary = true
		}),
	"perl": braceProfile("perl", []string{"sub"}, []string{"package"}, func(p *Profile) {
		p.LineComments = []string{"#"}
		p.BlockOpen, p.BlockClose = "", ""
		p.CommentBoundary = true
		p.MultilineQuotes = `"'`
		p.Quotes = ""
		p.Ternary = true
		p.ElifKeywords = wordSet("elsif")
		p.LoopKeywords = wordSet("for", "foreach", "while", "until")
		p.BoolOperators = wordSet("&&", "||", "and", "or")
	}),
	"shell": braceProfile("shell", []string{"function"}, nil, func(p *Profile) {
		p.LineComments = []string{"#"}
		p.BlockOpen, p.BlockClose = "", ""
		p.CommentBoundary = true
		p.MultilineQuotes = "\"'`"
		p.Quotes = ""
		p.ElifKeywords = wordSet("elif")
		p.LoopKeywords = wordSet("for", "while", "until")
		p.CatchKeywords = wordSet()
	}),
	"ruby": braceProfile("ruby", []string{"def"}, []string{"class", "module"}, func(p *Profile) {
		p.LineComments = []string{"#"}
		p.BlockOpen, p.BlockClose = "=begin", "=end"
		p.ElifKeywords = wordSet("elsif")
		p.LoopKeywords = wordSet("for", "while", "until")
		p.CaseKeywords = wordSet("when")
		p.CatchKeywords = wordSet("rescue")
		p.BoolOperators = wordSet("&&", "||", "and", "or")
		p.Ternary = true
	}),
	GenericDialect: braceProfile(GenericDialect, []string{"function", "func", "fun", "def", "fn", "sub"},
		[]string{"class", "struct", "interface", "trait"}, func(p *Profile) {
			p.LineComments = []string{"//", "#"}
			p.CommentBoundary = true
			p.MultilineQuotes = "`"
			p.Ternary = true
		}),
}

var dialectAliases = map[string]string{
	"py":           "python",
	"python3":      "python",
	"golang":       "go",
	"js":           "javascript",
	"jsx":          "javascript",
	"node":         "javascript",
	"ts":           "typescript",
	"tsx":          "typescript",
	"c++":          "cpp",
	"cxx":          "cpp",
	"cc":           "cpp",
	"cs":           "c_sharp",
	"c#":           "c_sharp",
	"csharp":       "c_sharp",
	"sh":           "shell",
	"bash":         "shell",
	"zsh":          "shell",
	"kt":           "kotlin",
	"rb":           "ruby",
	"rs":           "rust",
	"pl":           "perl",
	"coffee":       "coffeescript",
	"unknown":      GenericDialect,
	GenericDialect: GenericDialect,
}

// NormalizeDialect lower-cases and resolves aliases. Unknown names are
// returned unchanged so callers can still report what they were given.
func NormalizeDialect(hint string) string {
	d := strings.ToLower(strings.TrimSpace(hint))
	d = strings.ReplaceAll(d, " ", "_")

	if alias, ok := dialectAliases[d]; ok {
		return alias
	}

	return d
}

// DetectDialect guesses the dialect from the unit name and content.
// It returns GenericDialect when nothing matches.
func DetectDialect(unitID string, text []byte) string {
	lang := enry.GetLanguage(path.Base(unitID), text)
	if lang == "" {
		return GenericDialect
	}

	d := NormalizeDialect(lang)
	if _, ok := profiles[d]; !ok {
		return GenericDialect
	}

	return d
}

// ResolveDialect normalizes a hint and falls back to detection when it is empty.
func ResolveDialect(unitID, hint string, text []byte) string {
	if strings.TrimSpace(hint) == "" {
		return DetectDialect(unitID, text)
	}

	return NormalizeDialect(hint)
}

// ProfileFor returns the profile of a dialect, or the generic profile.
func ProfileFor(dialect string) *Profile {
	if p, ok := profiles[NormalizeDialect(dialect)]; ok {
		return p
	}

	return profiles[GenericDialect]
}

// KnownDialects lists every dialect with a dedicated profile.
func KnownDialects() []string {
	return slices.Sorted(maps.Keys(profiles))
}

var reservedWords = func() map[string]bool {
	set := make(map[string]bool)

	for _, words := range []map[string]bool{commonKeywords, controlKeywords, literalWords} {
		for w := range words {
			set[w] = true
		}
	}

	for _, p := range profiles {
		for _, words := range []map[string]bool{
			p.DefKeywords, p.ClassKeywords, p.IfKeywords, p.ElifKeywords, p.LoopKeywords,
			p.CaseKeywords, p.CatchKeywords, p.BoolOperators,
		} {
			for w := range words {
				set[w] = true
			}
		}
	}

	return set
}()

// IsReservedWord reports whether word is a keyword or literal word in any
// known dialect.
func IsReservedWord(word string) bool {
	return reservedWords[word]
}

// shortWordLen bounds the words looked up per dialect by IsReservedIn.
const shortWordLen = 3

// shortKeywords holds the reserved words shorter than shortWordLen of each
// dialect. Most of them are ordinary identifiers in some other dialect.
var shortKeywords = map[string]map[string]bool{
	"python":       wordSet("as", "if", "in", "is", "or"),
	"nim":          wordSet("as", "do", "if", "in", "is", "of", "or"),
	"coffeescript": wordSet("by", "do", "if", "in", "is", "no", "of", "on", "or"),
	"go":           wordSet("go", "if"),
	"javascript":   wordSet("do", "if", "in"),
	"typescript":   wordSet("as", "do", "if", "in", "is"),
	"java":         wordSet("do", "if"),
	"c":            wordSet("do", "if"),
	"cpp":          wordSet("do", "if", "or"),
	"c_sharp":      wordSet("as", "do", "if", "in", "is"),
	"rust":         wordSet("as", "fn", "if", "in"),
	"kotlin":       wordSet("as", "do", "if", "in", "is"),
	"swift":        wordSet("as", "do", "if", "in", "is"),
	"scala":        wordSet("do", "if"),
	"php":          wordSet("as", "do", "fn", "if", "or"),
	"dart":         wordSet("as", "do", "if", "in", "is", "on"),
	"groovy":       wordSet("as", "do", "if", "in"),
	"perl":         wordSet("do", "eq", "ge", "gt", "if", "le", "lt", "my", "ne", "no", "or", "qw"),
	"shell":        wordSet("do", "fi", "if", "in"),
	"ruby":         wordSet("do", "if", "in", "or"),
	GenericDialect: wordSet("as", "do", "fn", "if", "in", "is", "or"),
}

// IsReservedIn reports whether word is reserved in dialect. Words shorter than
// shortWordLen are looked up in the dialect's own keywords, longer ones in
// every known dialect. Unknown dialects use the generic set.
func IsReservedIn(dialect, word string) bool {
	if len(word) >= shortWordLen {
		return reservedWords[word]
	}

	set, ok := shortKeywords[NormalizeDialect(dialect)]
	if !ok {
		set = shortKeywords[GenericDialect]
	}

	return set[word]
}
