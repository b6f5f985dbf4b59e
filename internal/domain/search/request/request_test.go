package request

import (
	"strings"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("  Wann erfolgt die Auszahlung?  ", 0, 0, "", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Question() != "Wann erfolgt die Auszahlung?" {
		t.Errorf("question = %q", r.Question())
	}
	if r.Budget() != DefaultBudget {
		t.Errorf("budget = %d, want %d", r.Budget(), DefaultBudget)
	}
	if r.PerChannel() != DefaultBudget/2 {
		t.Errorf("per channel = %d, want %d", r.PerChannel(), DefaultBudget/2)
	}
	if r.TopK() != DefaultTopK {
		t.Errorf("topK = %d, want %d", r.TopK(), DefaultTopK)
	}
	if r.FieldWeights() != nil {
		t.Errorf("expected nil weights, got %v", r.FieldWeights())
	}
}

func TestNew_PerChannelRoundsDown(t *testing.T) {
	for budget, want := range map[int]int{1: 0, 2: 1, 7: 3, 20: 10} {
		r, err := New("q", budget, 0, "", nil, nil)
		if err != nil {
			t.Fatalf("budget %d: %v", budget, err)
		}
		if r.PerChannel() != want {
			t.Errorf("budget %d: per channel = %d, want %d", budget, r.PerChannel(), want)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		question string
		budget   int
		topK     int
		weights  []FieldWeight
	}{
		{"empty question", "   ", 0, 0, nil},
		{"long question", strings.Repeat("a", MaxQuestionLength+1), 0, 0, nil},
		{"negative budget", "q", -1, 0, nil},
		{"budget too large", "q", MaxBudget + 1, 0, nil},
		{"negative topK", "q", 0, -1, nil},
		{"unknown field", "q", 0, 0, []FieldWeight{{Field: "body", Weight: 1}}},
		{"zero weight", "q", 0, 0, []FieldWeight{{Field: FieldAnswer, Weight: 0}}},
		{"duplicate field", "q", 0, 0, []FieldWeight{{Field: FieldAnswer, Weight: 1}, {Field: FieldAnswer, Weight: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.question, tt.budget, tt.topK, "", nil, tt.weights); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_AuthorizationIDsDeduped(t *testing.T) {
	r, err := New("q", 0, 0, "p1", []string{"a", " ", "b", "a"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := r.AuthorizationIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want [a b]", ids)
	}

	r, err = New("q", 0, 0, "p1", []string{""}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.AuthorizationIDs() != nil {
		t.Errorf("expected nil ids, got %v", r.AuthorizationIDs())
	}
}

func TestNew_TopKClamped(t *testing.T) {
	r, err := New("q", 0, MaxTopK+50, "", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopK() != MaxTopK {
		t.Errorf("topK = %d, want %d", r.TopK(), MaxTopK)
	}
}

func TestWithScope_Copies(t *testing.T) {
	r, err := New("q", 0, 0, "", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scoped := r.WithScope("p1")
	if scoped.ScopeID() != "p1" || r.ScopeID() != "" {
		t.Errorf("scoped=%q original=%q", scoped.ScopeID(), r.ScopeID())
	}
}

func TestWithTenant_Trims(t *testing.T) {
	r, err := New("q", 0, 0, "", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.WithTenant("  acme ").TenantID(); got != "acme" {
		t.Errorf("tenant = %q, want acme", got)
	}
	if r.TenantID() != "" {
		t.Error("original request must stay unbound")
	}
}

func TestDefaultFieldWeights_Valid(t *testing.T) {
	if err := ValidateFieldWeights(DefaultFieldWeights()); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
}
