// Package evaluation measures retrieval quality against a labelled dataset.
package evaluation

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	domeval "github.com/kailas-cloud/qadex/internal/domain/evaluation"
	"github.com/kailas-cloud/qadex/internal/domain/search/request"
	"github.com/kailas-cloud/qadex/internal/domain/search/result"
	"github.com/kailas-cloud/qadex/internal/usecase/search"
)

// Evaluated retrieval methods.
const (
	MethodText   = "text"
	MethodVector = "vector"
	MethodRRF    = "rrf"
)

// DefaultSourceSystem labels cases without a source system.
const DefaultSourceSystem = "default"

// Config controls an evaluation run.
type Config struct {
	// Budget is the retrieval budget per case (0 means the request default).
	Budget int
	// Ks are the cut-offs reported as HR@K<k>.
	Ks []int
	// Model names the embedding model in the report.
	Model string
}

// Service runs evaluation cases through the retriever.
type Service struct {
	searcher Searcher
	cfg      Config
	logger   *zap.Logger
}

// New creates an evaluation service. Ks default to 3 and 5.
func New(searcher Searcher, cfg Config, logger *zap.Logger) *Service {
	if len(cfg.Ks) == 0 {
		cfg.Ks = []int{3, 5}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{searcher: searcher, cfg: cfg, logger: logger}
}

// Run evaluates every case and returns one row per source system, method and metric.
// Any retrieval failure aborts the run.
func (s *Service) Run(ctx context.Context, cases []domeval.Case) ([]Row, error) {
	// source system -> method -> ranks
	ranks := make(map[string]map[string][]int)
	var systems []string

	for i, c := range cases {
		req, err := request.New(c.Question, s.cfg.Budget, 0, c.ScopeID, c.AuthorizationIDs, nil)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		ret, err := s.searcher.Search(ctx, req.WithTenant(c.TenantID))
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}

		system := c.SourceSystem
		if system == "" {
			system = DefaultSourceSystem
		}
		byMethod, ok := ranks[system]
		if !ok {
			byMethod = make(map[string][]int)
			ranks[system] = byMethod
			systems = append(systems, system)
		}

		byMethod[MethodText] = append(byMethod[MethodText], rankOf(hitIDs(ret.Text), c.ExpectedDocumentID))
		byMethod[MethodVector] = append(byMethod[MethodVector], rankOf(hitIDs(ret.Vector), c.ExpectedDocumentID))
		byMethod[MethodRRF] = append(byMethod[MethodRRF], rankOf(fusedIDs(search.Rerank(ret)), c.ExpectedDocumentID))
	}

	slices.Sort(systems)
	var rows []Row
	for _, system := range systems {
		for _, method := range []string{MethodText, MethodVector, MethodRRF} {
			r := ranks[system][method]
			rows = append(rows, Row{
				SourceSystem: system, Method: method, Metric: "mrr",
				Value: MRR(r), Model: s.cfg.Model, Description: description(method),
			})
			for _, k := range s.cfg.Ks {
				rows = append(rows, Row{
					SourceSystem: system, Method: method, Metric: fmt.Sprintf("HR@K%d", k),
					Value: HitRateAtK(r, k), Model: s.cfg.Model, Description: description(method),
				})
			}
		}
		s.logger.Info("Evaluation finished",
			zap.String("source_system", system),
			zap.Int("cases", len(ranks[system][MethodRRF])),
			zap.Float64("rrf_mrr", MRR(ranks[system][MethodRRF])),
		)
	}
	return rows, nil
}

func description(method string) string {
	switch method {
	case MethodText:
		return "lexical channel"
	case MethodVector:
		return "vector channel"
	default:
		return "reranking using Reciprocal Rank Fusion"
	}
}

func hitIDs(hits []result.Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocumentID
	}
	return ids
}

func fusedIDs(hits []result.Fused) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocumentID
	}
	return ids
}
