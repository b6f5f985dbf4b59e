package filter

import "strconv"

// Matches evaluates n against a document's stored fields.
// A missing key and an empty value are both treated as absent.
func (n Node) Matches(fields map[string]string) bool {
	switch n.kind {
	case KindNone:
		return true
	case KindTerm, KindAnyOf:
		v, ok := fields[n.key]
		if !ok || v == "" {
			return false
		}
		for _, want := range n.values {
			if v == want {
				return true
			}
		}
		return false
	case KindExists:
		return fields[n.key] != ""
	case KindRange:
		v, err := strconv.ParseFloat(fields[n.key], 64)
		if err != nil {
			return false
		}
		return n.rng.Contains(v)
	case KindAnd:
		for _, c := range n.children {
			if !c.Matches(fields) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range n.children {
			if c.Matches(fields) {
				return true
			}
		}
		return false
	case KindNot:
		return !n.children[0].Matches(fields)
	default:
		return false
	}
}
