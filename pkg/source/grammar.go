package source

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/alexaandru/go-sitter-forest/c"
	"github.com/alexaandru/go-sitter-forest/cpp"
	golang "github.com/alexaandru/go-sitter-forest/go"
	"github.com/alexaandru/go-sitter-forest/java"
	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/python"
	"github.com/alexaandru/go-sitter-forest/ruby"
	"github.com/alexaandru/go-sitter-forest/rust"
	"github.com/alexaandru/go-sitter-forest/typescript"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// grammar maps the node kinds of one tree-sitter language onto the block model.
type grammar struct {
	name string
	load func() unsafe.Pointer

	functions   map[string]bool
	methods     map[string]bool
	classes     map[string]bool
	needsBody   map[string]bool
	containers  map[string]bool
	blocks      map[string]bool
	transparent map[string]bool
	statements  map[string]bool
	branches    map[string]BranchKind
	boolOps     map[string]bool
	boolTokens  map[string]bool
	literals    map[string]bool
	comments    map[string]bool

	once    sync.Once
	lang    *sitter.Language
	loadErr error
	pool    sync.Pool
}

var grammars = map[string]*grammar{
	"python": {
		name:        "python",
		load:        python.GetLanguage,
		functions:   wordSet("function_definition"),
		classes:     wordSet("class_definition"),
		blocks:      wordSet("module", "block"),
		transparent: wordSet("module", "block"),
		statements: wordSet("elif_clause", "else_clause", "except_clause", "except_group_clause",
			"finally_clause", "case_clause"),
		branches: map[string]BranchKind{
			"if_statement":           BranchIf,
			"elif_clause":            BranchElif,
			"if_clause":              BranchIf,
			"for_statement":          BranchLoop,
			"while_statement":        BranchLoop,
			"for_in_clause":          BranchLoop,
			"except_clause":          BranchCatch,
			"except_group_clause":    BranchCatch,
			"case_clause":            BranchCase,
			"conditional_expression": BranchTernary,
		},
		boolOps:    wordSet("boolean_operator"),
		boolTokens: wordSet("and", "or"),
		literals: wordSet("string", "concatenated_string", "integer", "float", "true", "false", "none",
			"ellipsis"),
		comments: wordSet("comment"),
	},
	"go": {
		name:        "go",
		load:        golang.GetLanguage,
		functions:   wordSet("function_declaration", "func_literal"),
		methods:     wordSet("method_declaration"),
		classes:     wordSet("type_spec"),
		blocks:      wordSet("source_file", "block", "statement_list"),
		transparent: wordSet("source_file", "block", "statement_list"),
		statements:  wordSet("expression_case", "default_case", "type_case", "communication_case"),
		branches: map[string]BranchKind{
			"if_statement":       BranchIf,
			"for_statement":      BranchLoop,
			"expression_case":    BranchCase,
			"type_case":          BranchCase,
			"communication_case": BranchCase,
		},
		boolOps:    wordSet("binary_expression"),
		boolTokens: wordSet("&&", "||"),
		literals: wordSet("interpreted_string_literal", "raw_string_literal", "int_literal", "float_literal",
			"imaginary_literal", "rune_literal", "true", "false", "nil", "iota"),
		comments: wordSet("comment"),
	},
	"javascript": {
		name: "javascript",
		load: javascript.GetLanguage,
		functions: wordSet("function_declaration", "generator_function_declaration", "function_expression",
			"function", "generator_function", "arrow_function"),
		methods:     wordSet("method_definition"),
		classes:     wordSet("class_declaration", "class"),
		blocks:      wordSet("program", "statement_block", "class_body", "switch_body"),
		transparent: wordSet("program", "statement_block", "class_body", "switch_body"),
		statements:  wordSet("else_clause", "catch_clause", "finally_clause"),
		branches:    cFamilyBranches("switch_case", "catch_clause", "ternary_expression", "for_in_statement"),
		boolOps:     wordSet("binary_expression"),
		boolTokens:  wordSet("&&", "||", "??"),
		literals: wordSet("string", "template_string", "number", "regex", "true", "false", "null",
			"undefined"),
		comments: wordSet("comment"),
	},
	"typescript": {
		name: "typescript",
		load: typescript.GetLanguage,
		functions: wordSet("function_declaration", "generator_function_declaration", "function_expression",
			"function", "generator_function", "arrow_function"),
		methods:     wordSet("method_definition"),
		classes:     wordSet("class_declaration", "abstract_class_declaration", "class", "interface_declaration"),
		blocks:      wordSet("program", "statement_block", "class_body", "switch_body"),
		transparent: wordSet("program", "statement_block", "class_body", "switch_body"),
		statements:  wordSet("else_clause", "catch_clause", "finally_clause"),
		branches:    cFamilyBranches("switch_case", "catch_clause", "ternary_expression", "for_in_statement"),
		boolOps:     wordSet("binary_expression"),
		boolTokens:  wordSet("&&", "||", "??"),
		literals: wordSet("string", "template_string", "number", "regex", "true", "false", "null",
			"undefined"),
		comments: wordSet("comment"),
	},
	"java": {
		name:    "java",
		load:    java.GetLanguage,
		methods: wordSet("method_declaration", "constructor_declaration"),
		classes: wordSet("class_declaration", "interface_declaration", "enum_declaration", "record_declaration"),
		blocks: wordSet("program", "block", "class_body", "interface_body", "constructor_body",
			"switch_block", "switch_block_statement_group"),
		transparent: wordSet("program", "block", "class_body", "interface_body", "constructor_body",
			"switch_block"),
		statements: wordSet("switch_rule", "catch_clause", "finally_clause"),
		branches: withBranch(cFamilyBranches("switch_label", "catch_clause", "ternary_expression",
			"enhanced_for_statement"), "switch_rule", BranchCase),
		boolOps:    wordSet("binary_expression"),
		boolTokens: wordSet("&&", "||"),
		literals: wordSet("string_literal", "text_block", "character_literal", "decimal_integer_literal",
			"hex_integer_literal", "octal_integer_literal", "binary_integer_literal",
			"decimal_floating_point_literal", "hex_floating_point_literal", "true", "false", "null_literal"),
		comments: wordSet("line_comment", "block_comment"),
	},
	"c": {
		name:        "c",
		load:        c.GetLanguage,
		functions:   wordSet("function_definition"),
		classes:     wordSet("struct_specifier", "union_specifier"),
		needsBody:   wordSet("struct_specifier", "union_specifier"),
		blocks:      wordSet("translation_unit", "compound_statement", "case_statement"),
		transparent: wordSet("translation_unit", "compound_statement"),
		statements:  wordSet("else_clause"),
		branches:    cFamilyBranches("case_statement", "", "conditional_expression"),
		boolOps:     wordSet("binary_expression"),
		boolTokens:  wordSet("&&", "||"),
		literals: wordSet("string_literal", "concatenated_string", "char_literal", "number_literal",
			"system_lib_string", "true", "false", "null"),
		comments: wordSet("comment"),
	},
	"cpp": {
		name:        "cpp",
		load:        cpp.GetLanguage,
		functions:   wordSet("function_definition"),
		classes:     wordSet("class_specifier", "struct_specifier", "union_specifier"),
		needsBody:   wordSet("class_specifier", "struct_specifier", "union_specifier"),
		blocks:      wordSet("translation_unit", "compound_statement", "case_statement", "field_declaration_list"),
		transparent: wordSet("translation_unit", "compound_statement", "field_declaration_list"),
		statements:  wordSet("else_clause", "catch_clause"),
		branches:    cFamilyBranches("case_statement", "catch_clause", "conditional_expression", "for_range_loop"),
		boolOps:     wordSet("binary_expression"),
		boolTokens:  wordSet("&&", "||", "and", "or"),
		literals: wordSet("string_literal", "raw_string_literal", "concatenated_string", "char_literal",
			"number_literal", "system_lib_string", "true", "false", "null", "nullptr"),
		comments: wordSet("comment"),
	},
	"rust": {
		name:        "rust",
		load:        rust.GetLanguage,
		functions:   wordSet("function_item"),
		classes:     wordSet("struct_item", "enum_item", "trait_item", "union_item"),
		containers:  wordSet("impl_item"),
		blocks:      wordSet("source_file", "block", "declaration_list", "match_block"),
		transparent: wordSet("source_file", "block", "declaration_list", "match_block"),
		statements:  wordSet("else_clause"),
		branches: map[string]BranchKind{
			"if_expression":    BranchIf,
			"for_expression":   BranchLoop,
			"while_expression": BranchLoop,
			"loop_expression":  BranchLoop,
			"match_arm":        BranchCase,
		},
		boolOps:    wordSet("binary_expression"),
		boolTokens: wordSet("&&", "||"),
		literals: wordSet("string_literal", "raw_string_literal", "char_literal", "integer_literal",
			"float_literal", "boolean_literal"),
		comments: wordSet("line_comment", "block_comment"),
	},
	"ruby": {
		name:        "ruby",
		load:        ruby.GetLanguage,
		functions:   wordSet("method", "singleton_method"),
		classes:     wordSet("class", "module"),
		blocks:      wordSet("program", "body_statement", "then", "else", "do", "begin", "block_body", "ensure"),
		transparent: wordSet("program", "body_statement", "then", "do", "block_body"),
		statements:  wordSet("elsif", "else", "when", "rescue", "ensure"),
		branches: map[string]BranchKind{
			"if":              BranchIf,
			"unless":          BranchIf,
			"if_modifier":     BranchIf,
			"unless_modifier": BranchIf,
			"elsif":           BranchElif,
			"while":           BranchLoop,
			"until":           BranchLoop,
			"for":             BranchLoop,
			"while_modifier":  BranchLoop,
			"until_modifier":  BranchLoop,
			"when":            BranchCase,
			"rescue":          BranchCatch,
			"conditional":     BranchTernary,
		},
		boolOps:    wordSet("binary"),
		boolTokens: wordSet("&&", "||", "and", "or"),
		literals: wordSet("string", "integer", "float", "true", "false", "nil", "simple_symbol",
			"delimited_symbol", "regex", "heredoc_body", "character"),
		comments: wordSet("comment"),
	},
}

// cFamilyBranches builds the branch table shared by the brace languages.
// Empty kind names are skipped.
func cFamilyBranches(caseKind, catchKind, ternaryKind string, extraLoops ...string) map[string]BranchKind {
	table := map[string]BranchKind{
		"if_statement":    BranchIf,
		"for_statement":   BranchLoop,
		"while_statement": BranchLoop,
		"do_statement":    BranchLoop,
	}

	for _, kind := range extraLoops {
		table[kind] = BranchLoop
	}

	if caseKind != "" {
		table[caseKind] = BranchCase
	}

	if catchKind != "" {
		table[catchKind] = BranchCatch
	}

	if ternaryKind != "" {
		table[ternaryKind] = BranchTernary
	}

	return table
}

func withBranch(table map[string]BranchKind, kind string, branch BranchKind) map[string]BranchKind {
	table[kind] = branch

	return table
}

// grammarFor returns the grammar of a dialect, or nil when the dialect has none.
func grammarFor(dialect string) *grammar {
	return grammars[dialect]
}

// language loads the tree-sitter language once. Grammar loading panics are
// converted into errors so callers can fall back to the lexer backend.
func (g *grammar) language() (*sitter.Language, error) {
	g.once.Do(func() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					g.loadErr = fmt.Errorf("%w: %s: %v", errNilLanguage, g.name, r)
				}
			}()

			g.lang = sitter.NewLanguage(g.load())
		}()

		if g.loadErr == nil && g.lang == nil {
			g.loadErr = fmt.Errorf("%w: %s", errNilLanguage, g.name)
		}

		lang := g.lang
		g.pool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(lang)

			return p
		}
	})

	return g.lang, g.loadErr
}

func (g *grammar) acquire() (*sitter.Parser, error) {
	_, err := g.language()
	if err != nil {
		return nil, err
	}

	p, ok := g.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errParserPool
	}

	return p, nil
}

func (g *grammar) release(p *sitter.Parser) {
	g.pool.Put(p)
}

// isStatement reports whether n is a statement given its parent.
func (g *grammar) isStatement(n, parent sitter.Node) bool {
	if !n.IsNamed() {
		return false
	}

	typ := n.Type()
	if g.comments[typ] || g.transparent[typ] {
		return false
	}

	if g.statements[typ] {
		return true
	}

	return !parent.IsNull() && g.blocks[parent.Type()]
}

// blockKind resolves the block variant of n, or "" when n opens no block.
func (g *grammar) blockKind(n sitter.Node, inClass bool) Kind {
	typ := n.Type()

	switch {
	case g.methods[typ]:
		return KindMethod
	case g.functions[typ]:
		if inClass {
			return KindMethod
		}

		return KindFunction
	case g.classes[typ]:
		if g.needsBody[typ] && n.ChildByFieldName("body").IsNull() {
			return ""
		}

		return KindClass
	}

	return ""
}

// branchKind resolves the branch variant of n. Default arms are not branches.
func (g *grammar) branchKind(n sitter.Node) (BranchKind, bool) {
	kind, ok := g.branches[n.Type()]
	if !ok {
		return "", false
	}

	if kind == BranchCase && n.ChildCount() > 0 && n.Child(0).Type() == "default" {
		return "", false
	}

	return kind, true
}

func isIdentifierKind(typ string) bool {
	return strings.Contains(typ, "identifier") || typ == "constant" || typ == "name" || typ == "variable_name"
}
