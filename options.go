package koine

import (
	"os"

	"github.com/rs/zerolog"
)

// FS is the minimal file-reading surface Parser needs to load a root
// grammar and its subgrammars. WithFS lets a caller supply an in-memory
// or embedded implementation instead of the real filesystem.
type FS interface {
	ReadFile(name string) ([]byte, error)
}

type osFS struct{}

func (osFS) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// Option configures a Parser at construction time, following the
// teacher's own options.go `type Option func(p *Parser) error` idiom —
// applied here to an internal config struct instead of the Parser
// itself, since several options (WithBasePath) must be resolved before
// the grammar has finished normalizing into a Parser.
type Option func(*config)

type config struct {
	logger   zerolog.Logger
	tabWidth int
	basePath string
	fs       FS
}

func newConfig(opts []Option) *config {
	c := &config{logger: zerolog.Nop(), fs: osFS{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger sets the structured logger used for grammar-construction and
// parse diagnostics. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithTabWidth overrides the lexer's tab width (default 8) regardless of
// what the grammar file declares.
func WithTabWidth(n int) Option {
	return func(c *config) { c.tabWidth = n }
}

// WithBasePath sets the directory subgrammar paths resolve against.
// Required when constructing a Parser from an in-memory grammar whose
// subgrammars use relative paths; FromFile/FromTOMLFile infer it from the
// grammar file's own directory when not set.
func WithBasePath(path string) Option {
	return func(c *config) { c.basePath = path }
}

// WithFS supplies a non-default file-reading implementation for grammar
// and subgrammar loading.
func WithFS(fs FS) Option {
	return func(c *config) { c.fs = fs }
}

func (c *config) loadFunc() func(path string) ([]byte, error) {
	return func(path string) ([]byte, error) { return c.fs.ReadFile(path) }
}
