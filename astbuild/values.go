package astbuild

import "strconv"

// coerceValue implements the `type` directive's scalar coercion (§4.6):
// "number" tries an integer parse before falling back to float, "bool"
// compares against the literal string "true", "null" always succeeds with
// a nil value (the point is marking the node as having a value at all).
func coerceValue(text string, typ string) (interface{}, bool) {
	switch typ {
	case "number":
		if iv, err := strconv.ParseInt(text, 10, 64); err == nil {
			return iv, true
		}
		if fv, err := strconv.ParseFloat(text, 64); err == nil {
			return fv, true
		}
		return nil, false
	case "bool":
		return text == "true", true
	case "null":
		return nil, true
	default:
		return nil, false
	}
}
