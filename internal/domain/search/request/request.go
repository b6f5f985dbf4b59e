package request

import (
	"fmt"
	"strings"
)

// Search parameter limits.
const (
	// MaxQuestionLength is the maximum allowed question length in bytes.
	MaxQuestionLength = 4096
	DefaultBudget     = 20
	MaxBudget         = 200
	DefaultTopK       = 5
	MaxTopK           = 100
	MaxAuthorizations = 256
)

// Searchable text fields and their default lexical weights.
const (
	FieldQuestion    = "question"
	FieldAnswer      = "answer"
	FieldCategory    = "category"
	FieldProjectName = "project_name"
)

// FieldWeight is a lexical relevance weight for one text field.
type FieldWeight struct {
	Field  string
	Weight float64
}

// DefaultFieldWeights returns question×2, answer×2, category×1, project_name×1.
func DefaultFieldWeights() []FieldWeight {
	return []FieldWeight{
		{Field: FieldQuestion, Weight: 2},
		{Field: FieldAnswer, Weight: 2},
		{Field: FieldCategory, Weight: 1},
		{Field: FieldProjectName, Weight: 1},
	}
}

// ValidateFieldWeights rejects unknown fields, duplicates and non-positive weights.
func ValidateFieldWeights(weights []FieldWeight) error {
	seen := make(map[string]struct{}, len(weights))
	for _, w := range weights {
		switch w.Field {
		case FieldQuestion, FieldAnswer, FieldCategory, FieldProjectName:
		default:
			return fmt.Errorf("unknown text field %q", w.Field)
		}
		if _, ok := seen[w.Field]; ok {
			return fmt.Errorf("duplicate text field %q", w.Field)
		}
		seen[w.Field] = struct{}{}
		if w.Weight <= 0 {
			return fmt.Errorf("weight for %q must be positive", w.Field)
		}
	}
	return nil
}

// Request is a validated retrieval query.
type Request struct {
	question         string
	tenantID         string
	budget           int
	topK             int
	scopeID          string
	authorizationIDs []string
	weights          []FieldWeight
}

// New validates and normalizes retrieval parameters.
// Defaults: budget=20, topK=5. Blank and duplicate authorization ids are dropped.
// Empty weights mean the caller's configured defaults apply.
func New(
	question string,
	budget, topK int,
	scopeID string,
	authorizationIDs []string,
	weights []FieldWeight,
) (Request, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Request{}, fmt.Errorf("question is required")
	}
	if len(question) > MaxQuestionLength {
		return Request{}, fmt.Errorf("question too long (max %d bytes)", MaxQuestionLength)
	}
	if budget < 0 || budget > MaxBudget {
		return Request{}, fmt.Errorf("budget must be between 0 and %d", MaxBudget)
	}
	if budget == 0 {
		budget = DefaultBudget
	}
	if topK < 0 {
		return Request{}, fmt.Errorf("top_k must not be negative")
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if len(authorizationIDs) > MaxAuthorizations {
		return Request{}, fmt.Errorf("too many authorization ids (max %d)", MaxAuthorizations)
	}
	if err := ValidateFieldWeights(weights); err != nil {
		return Request{}, err
	}

	return Request{
		question:         question,
		budget:           budget,
		topK:             topK,
		scopeID:          strings.TrimSpace(scopeID),
		authorizationIDs: dedupe(authorizationIDs),
		weights:          weights,
	}, nil
}

// Question returns the trimmed question text.
func (r Request) Question() string { return r.question }

// Budget returns the total number of hits requested across both channels.
func (r Request) Budget() int { return r.budget }

// PerChannel returns the hit count requested from each channel: ⌊budget/2⌋.
func (r Request) PerChannel() int { return r.budget / 2 }

// TopK returns how many fused hits the caller keeps.
func (r Request) TopK() int { return r.topK }

// ScopeID returns the requested scope, or "".
func (r Request) ScopeID() string { return r.scopeID }

// AuthorizationIDs returns the caller's authorization ids.
func (r Request) AuthorizationIDs() []string { return r.authorizationIDs }

// FieldWeights returns the lexical weight overrides, or nil.
func (r Request) FieldWeights() []FieldWeight { return r.weights }

// TenantID returns the tenant the request is bound to, or "" when the
// service default applies.
func (r Request) TenantID() string { return r.tenantID }

// WithTenant returns a copy of r bound to tenantID.
func (r Request) WithTenant(tenantID string) Request {
	r.tenantID = strings.TrimSpace(tenantID)
	return r
}

// WithScope returns a copy of r narrowed to scopeID.
func (r Request) WithScope(scopeID string) Request {
	r.scopeID = scopeID
	return r
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
