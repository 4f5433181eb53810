// Package koine is the C8 orchestrator: it wires the data model (rule),
// normalizer (normalize), linter (lint), PEG transpiler/matcher (peg),
// indentation-aware lexer (lexer), AST builder (astbuild), and string
// transpiler (transpile) into the public Parser/PlaceholderParser surface
// described in spec.md §6, grounded on the shape of the teacher's own
// api.go/options.go/error.go split (a small public surface over a large
// internal implementation, functional options, a dedicated Error type).
package koine

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chrsbats/koine/astbuild"
	"github.com/chrsbats/koine/lexer"
	"github.com/chrsbats/koine/lint"
	"github.com/chrsbats/koine/normalize"
	"github.com/chrsbats/koine/peg"
	"github.com/chrsbats/koine/rule"
	"github.com/chrsbats/koine/transpile"
	"github.com/rs/zerolog"
)

// snippetLen bounds how much unconsumed/mismatched input an error message
// quotes (§6's "'<snippet>...'" error shapes).
const snippetLen = 20

// Parser holds one fully normalized, linted, and compiled grammar. Build
// with FromFile, FromTOMLFile, or New; a Parser is safe for concurrent use
// by multiple goroutines (§5: "may be shared... in a read-only manner"),
// since Parse and Transpile each construct their own per-call matcher and
// transpiler state.
type Parser struct {
	grammar *rule.Grammar
	logger  zerolog.Logger
}

// FromFile loads, normalizes, lints, and compiles a YAML grammar rooted at
// path. The grammar's own directory is the default subgrammar base path.
func FromFile(path string, opts ...Option) (*Parser, error) {
	return buildFromFile(path, rule.ParseGrammarYAML, opts...)
}

// FromTOMLFile is FromFile for a TOML-encoded root grammar (§4.2's
// supplemented structured-config format).
func FromTOMLFile(path string, opts ...Option) (*Parser, error) {
	return buildFromFile(path, rule.ParseGrammarTOML, opts...)
}

func buildFromFile(path string, parse func([]byte) (*rule.Grammar, error), opts ...Option) (*Parser, error) {
	cfg := newConfig(opts)
	data, err := cfg.fs.ReadFile(path)
	if err != nil {
		return nil, newError(ConfigurationError, fmt.Sprintf("koine: reading grammar %q: %v", path, err))
	}
	g, err := parse(data)
	if err != nil {
		return nil, newError(ConfigurationError, err.Error())
	}
	if cfg.basePath == "" {
		cfg.basePath = filepath.Dir(path)
	}
	return buildParser(g, cfg)
}

// New constructs a Parser from an already-parsed grammar. base_path (via
// WithBasePath) is required if any subgrammar directive uses a relative
// path.
func New(g *rule.Grammar, opts ...Option) (*Parser, error) {
	return buildParser(g, newConfig(opts))
}

func buildParser(g *rule.Grammar, cfg *config) (*Parser, error) {
	g = cloneGrammar(g)
	if cfg.tabWidth != 0 && g.Lexer != nil {
		lex := *g.Lexer
		lex.TabWidth = cfg.tabWidth
		g.Lexer = &lex
	}

	if err := lint.CheckLeafSubgrammarConflict(g); err != nil {
		cfg.logger.Error().Err(err).Msg("koine: leaf/subgrammar conflict")
		return nil, newError(ConfigurationError, err.Error())
	}
	if err := normalize.Normalize(g, cfg.basePath, cfg.loadFunc()); err != nil {
		cfg.logger.Error().Err(err).Str("base_path", cfg.basePath).Msg("koine: grammar normalization failed")
		return nil, newError(ConfigurationError, err.Error())
	}
	if err := lint.Lint(g); err != nil {
		cfg.logger.Error().Err(err).Msg("koine: grammar failed lint checks")
		return nil, newError(lintErrorKind(err), err.Error())
	}
	cfg.logger.Debug().Str("start_rule", g.StartRule).Int("rules", len(g.Rules)).Msg("koine: grammar ready")
	return &Parser{grammar: g, logger: cfg.logger}, nil
}

func lintErrorKind(err error) ErrorKind {
	if lerr, ok := err.(*lint.Error); ok && lerr.Kind == lint.KindCompilation {
		return CompilationError
	}
	return ConfigurationError
}

func cloneGrammar(g *rule.Grammar) *rule.Grammar {
	out := *g
	out.Rules = make(map[string]*rule.Node, len(g.Rules))
	for name, body := range g.Rules {
		out.Rules[name] = body.Clone()
	}
	return &out
}

// PlaceholderParser never descends into subgrammar files: every
// subgrammar directive is inlined as its own placeholder, and linting is
// skipped since the grammar is intentionally incomplete (§6).
type PlaceholderParser struct {
	grammar *rule.Grammar
	logger  zerolog.Logger
}

// NewPlaceholder constructs a PlaceholderParser from an already-parsed
// grammar.
func NewPlaceholder(g *rule.Grammar, opts ...Option) *PlaceholderParser {
	cfg := newConfig(opts)
	g = cloneGrammar(g)
	if cfg.tabWidth != 0 && g.Lexer != nil {
		lex := *g.Lexer
		lex.TabWidth = cfg.tabWidth
		g.Lexer = &lex
	}
	normalize.NormalizePlaceholder(g)
	return &PlaceholderParser{grammar: g, logger: cfg.logger}
}

// Parse matches text against start_rule (the grammar's own start_rule if
// start_rule is omitted or empty) and builds its AST.
func (p *Parser) Parse(text string, startRule ...string) (*astbuild.Node, error) {
	return parseGrammar(p.grammar, p.logger, text, startRule...)
}

// Parse is PlaceholderParser's equivalent of Parser.Parse.
func (p *PlaceholderParser) Parse(text string, startRule ...string) (*astbuild.Node, error) {
	return parseGrammar(p.grammar, p.logger, text, startRule...)
}

// Validate reports whether text parses cleanly; msg carries the error
// text on failure and is empty on success.
func (p *Parser) Validate(text string) (bool, string) {
	return validateGrammar(p.grammar, p.logger, text)
}

func (p *PlaceholderParser) Validate(text string) (bool, string) {
	return validateGrammar(p.grammar, p.logger, text)
}

// Transpile parses text and renders the resulting AST through the
// grammar's transpiler configuration (§4.7).
func (p *Parser) Transpile(text string) (string, error) {
	return transpileGrammar(p.grammar, p.logger, text)
}

func (p *PlaceholderParser) Transpile(text string) (string, error) {
	return transpileGrammar(p.grammar, p.logger, text)
}

// PEG renders the compiled grammar back out as PEG grammar text (§4.4),
// for debugging and for feeding HighlightPEG.
func (p *Parser) PEG() (string, error) {
	return peg.Render(p.grammar)
}

func (p *PlaceholderParser) PEG() (string, error) {
	return peg.Render(p.grammar)
}

func validateGrammar(g *rule.Grammar, logger zerolog.Logger, text string) (bool, string) {
	if _, err := parseGrammar(g, logger, text); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func transpileGrammar(g *rule.Grammar, logger zerolog.Logger, text string) (string, error) {
	root, err := parseGrammar(g, logger, text)
	if err != nil {
		return "", err
	}
	out, err := transpile.New(g).Transpile(root)
	if err != nil {
		logger.Error().Err(err).Msg("koine: transpile failed")
		return "", newError(TranspileError, err.Error())
	}
	return out, nil
}

func parseGrammar(g *rule.Grammar, logger zerolog.Logger, text string, startRule ...string) (*astbuild.Node, error) {
	start := g.StartRule
	if len(startRule) > 0 && startRule[0] != "" {
		start = startRule[0]
	}
	logger.Debug().Str("start_rule", start).Int("input_len", len(text)).Msg("koine: parse starting")

	if g.Lexer != nil {
		tokens, err := lexer.Tokenize(g.Lexer, text)
		if err != nil {
			logger.Warn().Err(err).Msg("koine: lexing failed")
			return nil, wrapLexError(err)
		}
		joined := lexer.JoinTokenTypes(tokens)
		m, err := peg.Compile(g, joined)
		if err != nil {
			return nil, newError(CompilationError, err.Error())
		}
		tree, err := m.Parse(start)
		if err != nil {
			logger.Warn().Err(err).Msg("koine: token parse failed")
			return nil, wrapTokenParseError(err, tokens)
		}
		root, err := astbuild.Build(g, tree, tokens, "")
		if err != nil {
			return nil, newError(ParseError, err.Error())
		}
		return root, nil
	}

	m, err := peg.Compile(g, text)
	if err != nil {
		return nil, newError(CompilationError, err.Error())
	}
	tree, err := m.Parse(start)
	if err != nil {
		logger.Warn().Err(err).Msg("koine: parse failed")
		return nil, wrapTextParseError(err, text, m)
	}
	root, err := astbuild.Build(g, tree, nil, text)
	if err != nil {
		return nil, newError(ParseError, err.Error())
	}
	return root, nil
}

func wrapLexError(err error) *Error {
	lerr, ok := err.(*lexer.Error)
	if !ok {
		return newError(LexicalError, err.Error())
	}
	kind := LexicalError
	if lerr.Kind == lexer.KindIndentation {
		kind = IndentationError
	}
	return newError(kind, lerr.Error())
}

// wrapTokenParseError implements §6's two lexer-mode parse error shapes,
// translating the matcher's offset into the synthetic joined-token-type
// stream back into the real token it names.
func wrapTokenParseError(err error, tokens []lexer.Token) *Error {
	perr, ok := err.(*peg.Error)
	if !ok {
		return newError(ParseError, err.Error())
	}
	if perr.Kind == peg.KindLeftRecursion {
		return newError(CompilationError, fmt.Sprintf("koine: left recursion detected in rule %q", perr.Rule))
	}

	starts := tokenBoundaries(tokens)
	idx := sort.Search(len(starts), func(i int) bool { return starts[i] >= perr.Offset })
	if idx >= len(tokens) {
		return newError(ParseError, "Syntax error at end of input.")
	}
	tok := tokens[idx]
	return newError(ParseError, fmt.Sprintf("Syntax error at L%d:C%d near '%s'. Unexpected token: %s.",
		tok.Line, tok.Col, tok.Value, tok.Type))
}

func tokenBoundaries(tokens []lexer.Token) []int {
	starts := make([]int, len(tokens)+1)
	pos := 0
	for i, t := range tokens {
		starts[i] = pos
		pos += len(t.Type) + 1
	}
	starts[len(tokens)] = pos
	return starts
}

// wrapTextParseError implements §6's two no-lexer parse error shapes.
func wrapTextParseError(err error, text string, m *peg.Matcher) *Error {
	perr, ok := err.(*peg.Error)
	if !ok {
		return newError(ParseError, err.Error())
	}
	if perr.Kind == peg.KindLeftRecursion {
		return newError(CompilationError, fmt.Sprintf("koine: left recursion detected in rule %q", perr.Rule))
	}

	pf := lexer.NewPositionFinder(text)
	line, col := pf.Find(perr.Offset)
	snippet := snippetAt(text, perr.Offset)

	if perr.Kind == peg.KindIncomplete {
		return newError(ParseError, fmt.Sprintf(
			"Syntax error at L%d:C%d. Failed to consume entire input. Unconsumed input begins with: '%s...'",
			line, col, snippet))
	}
	return newError(ParseError, fmt.Sprintf(
		"Syntax error at L%d:C%d near '%s...'. Expected one of: %s.",
		line, col, snippet, strings.Join(m.Expected(), ", ")))
}

func snippetAt(text string, offset int) string {
	if offset >= len(text) {
		return ""
	}
	end := offset + snippetLen
	if end > len(text) {
		end = len(text)
	}
	s := text[offset:end]
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
