// Package filter is a typed boolean expression tree over stored document fields.
// Nodes are validated when constructed; a zero Node matches everything.
package filter

import (
	"errors"
	"fmt"
)

// MaxChildren is the maximum number of children of an And/Or node.
const MaxChildren = 32

// Kind identifies the node type.
type Kind int

const (
	// KindNone is the zero Node: no constraint.
	KindNone Kind = iota
	// KindTerm is exact equality on a tag field.
	KindTerm
	// KindAnyOf is membership of a tag field in a value set.
	KindAnyOf
	// KindExists requires the field to be present and non-empty.
	KindExists
	// KindRange is a numeric range on a field.
	KindRange
	// KindAnd requires every child to match.
	KindAnd
	// KindOr requires at least one child to match.
	KindOr
	// KindNot negates its single child.
	KindNot
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTerm:
		return "term"
	case KindAnyOf:
		return "any_of"
	case KindExists:
		return "exists"
	case KindRange:
		return "range"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindNot:
		return "not"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is one element of a filter expression tree.
type Node struct {
	kind     Kind
	key      string
	values   []string
	rng      Range
	children []Node
}

// Term matches documents whose field key equals value.
func Term(key, value string) (Node, error) {
	if key == "" {
		return Node{}, errors.New("filter key is required")
	}
	if value == "" {
		return Node{}, fmt.Errorf("term value is required for key %q", key)
	}
	return Node{kind: KindTerm, key: key, values: []string{value}}, nil
}

// AnyOf matches documents whose field key equals one of values.
// Empty and duplicate values are dropped; at least one value must remain.
func AnyOf(key string, values ...string) (Node, error) {
	if key == "" {
		return Node{}, errors.New("filter key is required")
	}
	seen := make(map[string]struct{}, len(values))
	uniq := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		uniq = append(uniq, v)
	}
	if len(uniq) == 0 {
		return Node{}, fmt.Errorf("any_of requires at least one value for key %q", key)
	}
	return Node{kind: KindAnyOf, key: key, values: uniq}, nil
}

// Exists matches documents where field key is present.
func Exists(key string) (Node, error) {
	if key == "" {
		return Node{}, errors.New("filter key is required")
	}
	return Node{kind: KindExists, key: key}, nil
}

// InRange matches documents whose numeric field key falls within r.
func InRange(key string, r Range) (Node, error) {
	if key == "" {
		return Node{}, errors.New("filter key is required")
	}
	if r.IsZero() {
		return Node{}, fmt.Errorf("range for key %q has no boundary", key)
	}
	return Node{kind: KindRange, key: key, rng: r}, nil
}

// And matches when every child matches.
func And(children ...Node) (Node, error) {
	return group(KindAnd, children)
}

// Or matches when at least one child matches.
func Or(children ...Node) (Node, error) {
	return group(KindOr, children)
}

// Not negates child.
func Not(child Node) (Node, error) {
	if child.IsZero() {
		return Node{}, errors.New("not requires a child")
	}
	return Node{kind: KindNot, children: []Node{child}}, nil
}

func group(kind Kind, children []Node) (Node, error) {
	if len(children) == 0 {
		return Node{}, fmt.Errorf("%s requires at least one child", kind)
	}
	if len(children) > MaxChildren {
		return Node{}, fmt.Errorf("too many %s children (max %d)", kind, MaxChildren)
	}
	for i := range children {
		if children[i].IsZero() {
			return Node{}, fmt.Errorf("%s child %d is empty", kind, i)
		}
	}
	if len(children) == 1 {
		return children[0], nil
	}
	cp := make([]Node, len(children))
	copy(cp, children)
	return Node{kind: kind, children: cp}, nil
}

// Kind returns the node type.
func (n Node) Kind() Kind { return n.kind }

// Key returns the field name of a leaf node.
func (n Node) Key() string { return n.key }

// Value returns the single value of a term node.
func (n Node) Value() string {
	if len(n.values) == 0 {
		return ""
	}
	return n.values[0]
}

// Values returns the values of a term or any_of node.
func (n Node) Values() []string { return n.values }

// Range returns the bounds of a range node.
func (n Node) Range() Range { return n.rng }

// Children returns the operands of an and/or/not node.
func (n Node) Children() []Node { return n.children }

// IsZero reports whether n is the empty (match-all) node.
func (n Node) IsZero() bool { return n.kind == KindNone }
