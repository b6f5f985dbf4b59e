// Package access turns a caller's authorization context into a visibility
// predicate and boost specification over corpus documents.
//
// A document is visible when it belongs to the tenant and at least one class holds:
//
//	public               no project_id
//	scope only           project_id == scope and no authorization_id
//	scope+authorization  project_id == scope and authorization_id in the caller's set
//
// The scope classes are only added when the request carries a scope (and, for the
// last class, authorization ids).
package access

import (
	"fmt"

	"github.com/kailas-cloud/qadex/internal/domain"
	"github.com/kailas-cloud/qadex/internal/domain/search/filter"
)

// Stored document fields the predicate refers to.
const (
	FieldTenantID        = "tenant_id"
	FieldScopeID         = "project_id"
	FieldAuthorizationID = "authorization_id"
)

// Boost weights added to a document's native relevance score.
const (
	ScopeOnlyBoost          = 3.0
	ScopeAuthorizationBoost = 5.0
)

// Class names a visibility class.
type Class string

const (
	// ClassPublic documents have no scope.
	ClassPublic Class = "public"
	// ClassScope documents belong to the requested scope and have no authorization id.
	ClassScope Class = "scope"
	// ClassScopeAuthorization documents belong to the requested scope and to one of the caller's authorization ids.
	ClassScopeAuthorization Class = "scope_authorization"
)

// Context is the per-request authorization context.
type Context struct {
	TenantID         string
	ScopeID          string
	AuthorizationIDs []string
}

// Boost adds Weight to the score of documents matching When.
type Boost struct {
	Class  Class
	When   filter.Node
	Weight float64
}

// Partition is one visibility class restricted to the tenant. Partitions of a
// predicate are disjoint and their union is Filter.
type Partition struct {
	Class  Class
	Filter filter.Node
	Weight float64
}

// Boost returns the partition's constant weight for any document in it.
func (p Partition) Boost(map[string]string) float64 { return p.Weight }

// Predicate is the tenant-scoped visibility filter plus its boosts.
type Predicate struct {
	Filter     filter.Node
	Boosts     []Boost
	Partitions []Partition
}

// Build creates the predicate for c. Only a missing tenant id is an error.
func Build(c Context) (Predicate, error) {
	if c.TenantID == "" {
		return Predicate{}, fmt.Errorf("%w: tenant id is required", domain.ErrInvalidAccessContext)
	}

	tenant, err := filter.Term(FieldTenantID, c.TenantID)
	if err != nil {
		return Predicate{}, fmt.Errorf("tenant term: %w", err)
	}

	public, err := absent(FieldScopeID)
	if err != nil {
		return Predicate{}, err
	}
	classes := []filter.Node{public}
	kinds := []Class{ClassPublic}
	weights := []float64{0}

	var boosts []Boost

	if c.ScopeID != "" {
		scopeOnly, err := scopeOnlyNode(c.ScopeID)
		if err != nil {
			return Predicate{}, err
		}
		classes = append(classes, scopeOnly)
		kinds = append(kinds, ClassScope)
		weights = append(weights, ScopeOnlyBoost)
		boosts = append(boosts, Boost{Class: ClassScope, When: scopeOnly, Weight: ScopeOnlyBoost})

		if hasValue(c.AuthorizationIDs) {
			scopeAuth, err := scopeAuthorizationNode(c.ScopeID, c.AuthorizationIDs)
			if err != nil {
				return Predicate{}, err
			}
			classes = append(classes, scopeAuth)
			kinds = append(kinds, ClassScopeAuthorization)
			weights = append(weights, ScopeAuthorizationBoost)
			// highest weight first: BoostFor stops at the first match
			boosts = append([]Boost{{
				Class:  ClassScopeAuthorization,
				When:   scopeAuth,
				Weight: ScopeAuthorizationBoost,
			}}, boosts...)
		}
	}

	visible, err := filter.Or(classes...)
	if err != nil {
		return Predicate{}, fmt.Errorf("visibility classes: %w", err)
	}
	root, err := filter.And(tenant, visible)
	if err != nil {
		return Predicate{}, fmt.Errorf("tenant scope: %w", err)
	}

	partitions := make([]Partition, len(classes))
	for i, class := range classes {
		f, err := filter.And(tenant, class)
		if err != nil {
			return Predicate{}, fmt.Errorf("%s partition: %w", kinds[i], err)
		}
		partitions[i] = Partition{Class: kinds[i], Filter: f, Weight: weights[i]}
	}

	return Predicate{Filter: root, Boosts: boosts, Partitions: partitions}, nil
}

// BoostFor returns the boost weight that applies to a document with the given
// stored fields: 5 for scope+authorization, 3 for scope only, 0 otherwise.
func (p Predicate) BoostFor(fields map[string]string) float64 {
	for _, b := range p.Boosts {
		if b.When.Matches(fields) {
			return b.Weight
		}
	}
	return 0
}

// HasBoosts reports whether any boost can apply.
func (p Predicate) HasBoosts() bool { return len(p.Boosts) > 0 }

func scopeOnlyNode(scopeID string) (filter.Node, error) {
	scope, err := filter.Term(FieldScopeID, scopeID)
	if err != nil {
		return filter.Node{}, fmt.Errorf("scope term: %w", err)
	}
	noAuth, err := absent(FieldAuthorizationID)
	if err != nil {
		return filter.Node{}, err
	}
	n, err := filter.And(scope, noAuth)
	if err != nil {
		return filter.Node{}, fmt.Errorf("scope class: %w", err)
	}
	return n, nil
}

func scopeAuthorizationNode(scopeID string, authIDs []string) (filter.Node, error) {
	scope, err := filter.Term(FieldScopeID, scopeID)
	if err != nil {
		return filter.Node{}, fmt.Errorf("scope term: %w", err)
	}
	auth, err := filter.AnyOf(FieldAuthorizationID, authIDs...)
	if err != nil {
		return filter.Node{}, fmt.Errorf("authorization ids: %w", err)
	}
	n, err := filter.And(scope, auth)
	if err != nil {
		return filter.Node{}, fmt.Errorf("scope authorization class: %w", err)
	}
	return n, nil
}

func absent(key string) (filter.Node, error) {
	exists, err := filter.Exists(key)
	if err != nil {
		return filter.Node{}, fmt.Errorf("exists %s: %w", key, err)
	}
	n, err := filter.Not(exists)
	if err != nil {
		return filter.Node{}, fmt.Errorf("absent %s: %w", key, err)
	}
	return n, nil
}

func hasValue(ids []string) bool {
	for _, id := range ids {
		if id != "" {
			return true
		}
	}
	return false
}
