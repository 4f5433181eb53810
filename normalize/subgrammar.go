// Package normalize implements Koine's C3 grammar normalizer: anonymous
// rule hoisting (anonymize.go) and subgrammar resolution (this file),
// grounded on how the teacher's grammar.go builds a participle grammar
// from a Go struct tree in a single breadth-first walk — adapted here to
// walk a *rule.Grammar and a set of sibling grammar files instead of a
// struct's reflect.Type tree.
package normalize

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chrsbats/koine/rule"
)

// LoadFunc reads the raw bytes of a grammar file at an already-resolved
// path. The koine package supplies one backed by its koine.FS (os.ReadFile
// unless WithFS overrides it); tests can supply one backed by an in-memory
// map.
type LoadFunc func(path string) ([]byte, error)

type subgrammarFile struct {
	namespace string
	dir       string
	grammar   *rule.Grammar
}

type job struct {
	g    *rule.Grammar
	dir  string
	ns   string // "" for the root grammar
	path string
}

// ResolveSubgrammars implements §4.3's six-step subgrammar algorithm: it
// discovers every transitively referenced grammar file breadth-first,
// namespaces and merges their rules into root.Rules, rewrites in-file
// self-references to the namespaced name, replaces every subgrammar node
// (root's own and every discovered file's) with a qualified rule
// reference, and records root.ExternalRoots for the linter's reachability
// pass.
func ResolveSubgrammars(root *rule.Grammar, basePath string, load LoadFunc) error {
	loaded := map[string]*subgrammarFile{}
	var externalRoots []string

	queue := []job{{g: root, dir: basePath}}
	for i := 0; i < len(queue); i++ {
		j := queue[i]
		for name, body := range j.g.Rules {
			nb, err := walkReplace(body, j.dir, load, loaded, &queue, &externalRoots)
			if err != nil {
				return err
			}
			j.g.Rules[name] = nb
		}
	}

	for idx := 1; idx < len(queue); idx++ {
		j := queue[idx]
		local := make(map[string]bool, len(j.g.Rules))
		for name := range j.g.Rules {
			local[name] = true
		}
		for _, body := range j.g.Rules {
			rewriteLocalRefs(body, j.ns, local)
		}
		for name, body := range j.g.Rules {
			root.Rules[j.ns+"_"+name] = body
		}
		if j.g.StartRule != "" {
			externalRoots = append(externalRoots, j.ns+"_"+j.g.StartRule)
		}
	}

	root.ExternalRoots = append(root.ExternalRoots, externalRoots...)
	return nil
}

func walkReplace(n *rule.Node, dir string, load LoadFunc, loaded map[string]*subgrammarFile, queue *[]job, externalRoots *[]string) (*rule.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case rule.SubgrammarRef:
		path := filepath.Clean(filepath.Join(dir, n.Subgrammar.File))
		entry, ok := loaded[path]
		if !ok {
			data, err := load(path)
			if err != nil {
				return nil, fmt.Errorf("koine: loading subgrammar %q: %w", path, err)
			}
			sub, err := rule.ParseGrammarYAML(data)
			if err != nil {
				return nil, fmt.Errorf("koine: subgrammar %q: %w", path, err)
			}
			entry = &subgrammarFile{namespace: namespaceFor(path), dir: filepath.Dir(path), grammar: sub}
			loaded[path] = entry
			*queue = append(*queue, job{g: sub, dir: entry.dir, ns: entry.namespace, path: path})
		}
		entryRule := n.Subgrammar.Rule
		if entryRule == "" {
			entryRule = entry.grammar.StartRule
		}
		if entryRule == "" {
			return nil, fmt.Errorf("koine: subgrammar %q has no rule specified and declares no start_rule", path)
		}
		qualified := entry.namespace + "_" + entryRule
		*externalRoots = append(*externalRoots, qualified)
		return &rule.Node{Kind: rule.RuleRef, Str: qualified, AST: n.AST}, nil

	case rule.Choice, rule.Sequence:
		for i, c := range n.Children {
			nc, err := walkReplace(c, dir, load, loaded, queue, externalRoots)
			if err != nil {
				return nil, err
			}
			n.Children[i] = nc
		}
		return n, nil

	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional, rule.PositiveLookahead, rule.NegativeLookahead:
		nc, err := walkReplace(n.Child, dir, load, loaded, queue, externalRoots)
		if err != nil {
			return nil, err
		}
		n.Child = nc
		return n, nil

	default:
		return n, nil
	}
}

// rewriteLocalRefs implements §4.3 step 4: a {rule: X} node inside a
// non-root grammar is renamed to the namespaced form only if X is one of
// that grammar's own rule names; qualified references produced by
// walkReplace (pointing into a different namespace) are left untouched.
func rewriteLocalRefs(n *rule.Node, ns string, local map[string]bool) {
	if n == nil {
		return
	}
	switch n.Kind {
	case rule.RuleRef:
		if local[n.Str] {
			n.Str = ns + "_" + n.Str
		}
	case rule.Choice, rule.Sequence:
		for _, c := range n.Children {
			rewriteLocalRefs(c, ns, local)
		}
	case rule.ZeroOrMore, rule.OneOrMore, rule.Optional, rule.PositiveLookahead, rule.NegativeLookahead:
		rewriteLocalRefs(n.Child, ns, local)
	}
}

// namespaceFor derives a subgrammar's namespace from its filename stem
// per §4.3 step 2: split on `_`/`-`, capitalize each part, concatenate.
func namespaceFor(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' })
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
