package lint

import "github.com/chrsbats/koine/rule"

// Lint runs the post-normalization portion of §4.4: directive conflicts
// (other than the leaf/subgrammar one, which must run earlier — see
// CheckLeafSubgrammarConflict), reachability, left recursion, and
// always-empty rules. Call after normalize.Normalize/NormalizePlaceholder
// and before peg.Render.
func Lint(g *rule.Grammar) error {
	if err := CheckDirectiveConflicts(g); err != nil {
		return err
	}
	if err := CheckReachability(g); err != nil {
		return err
	}
	if err := CheckLeftRecursion(g); err != nil {
		return err
	}
	if err := CheckAlwaysEmpty(g); err != nil {
		return err
	}
	return nil
}
