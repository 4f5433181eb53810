package normalize

import "github.com/chrsbats/koine/rule"

// Normalize runs the full (non-placeholder) §4.3 pipeline: subgrammar
// resolution first (so merged-in rules are present before hoisting runs
// over the complete rule set), then anonymous-rule hoisting.
func Normalize(g *rule.Grammar, basePath string, load LoadFunc) error {
	if err := ResolveSubgrammars(g, basePath, load); err != nil {
		return err
	}
	HoistAnonymous(g)
	return nil
}

// NormalizePlaceholder runs the PlaceholderParser variant: subgrammar
// nodes are replaced by their placeholders instead of resolved against
// disk, then the same hoisting pass runs over the result.
func NormalizePlaceholder(g *rule.Grammar) {
	ResolvePlaceholders(g)
	HoistAnonymous(g)
}
