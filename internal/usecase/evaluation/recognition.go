package evaluation

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qadex/internal/domain/catalog"
	domeval "github.com/kailas-cloud/qadex/internal/domain/evaluation"
)

// Recognition report methods: one per resolver stage plus the combined result.
const (
	RecognitionExact     = string(catalog.MethodExact)
	RecognitionEmbedding = string(catalog.MethodEmbedding)
	RecognitionOverall   = "overall"
)

// Recognition report metrics.
const (
	MetricAccuracy = "accuracy"
	// MetricCoverage is the share of all cases a stage answered.
	MetricCoverage = "coverage"
)

// DefaultDatasetVersion labels recognition rows when no version is configured.
const DefaultDatasetVersion = "v1"

const createdAtLayout = "2006-01-02"

var recognitionHeader = []string{"method", "metric", "value", "description", "dataset_version", "created_at"}

// RecognitionRow is one metric value of an entity recognition report.
type RecognitionRow struct {
	Method         string
	Metric         string
	Value          float64
	Description    string
	DatasetVersion string
	CreatedAt      string
}

func (r RecognitionRow) key() [4]string {
	return [4]string{r.Method, r.Metric, r.DatasetVersion, r.CreatedAt}
}

// RecognitionConfig controls an entity recognition run.
type RecognitionConfig struct {
	DatasetVersion string
	// Now stamps created_at; nil means time.Now.
	Now func() time.Time
}

// RecognitionService measures how well the resolver names the entity a text refers to.
type RecognitionService struct {
	resolver Resolver
	cfg      RecognitionConfig
	logger   *zap.Logger
}

// NewRecognition creates a recognition evaluation over resolver.
func NewRecognition(resolver Resolver, cfg RecognitionConfig, logger *zap.Logger) *RecognitionService {
	if cfg.DatasetVersion == "" {
		cfg.DatasetVersion = DefaultDatasetVersion
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecognitionService{resolver: resolver, cfg: cfg, logger: logger}
}

type stageTally struct {
	answered, correct int
}

// Run resolves every case. A case is correct when the resolved id equals the
// expected one, or when nothing resolves and no entity is expected.
// Accuracy per stage counts only the cases that stage answered.
func (s *RecognitionService) Run(ctx context.Context, cases []domeval.RecognitionCase) ([]RecognitionRow, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("no recognition cases")
	}

	stages := map[catalog.Method]*stageTally{
		catalog.MethodExact:     {},
		catalog.MethodEmbedding: {},
	}
	correct := 0
	for i, c := range cases {
		id, ok, err := s.resolver.Resolve(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("recognition case %d: %w", i, err)
		}
		if !ok {
			if c.ExpectedEntityID == "" {
				correct++
			}
			continue
		}
		hit := id.ID == c.ExpectedEntityID
		if hit {
			correct++
		}
		if st, known := stages[id.Method]; known {
			st.answered++
			if hit {
				st.correct++
			}
		}
	}

	total := float64(len(cases))
	created := s.cfg.Now().UTC().Format(createdAtLayout)
	row := func(method, metric string, v float64, desc string) RecognitionRow {
		return RecognitionRow{
			Method: method, Metric: metric, Value: v, Description: desc,
			DatasetVersion: s.cfg.DatasetVersion, CreatedAt: created,
		}
	}

	exact, emb := stages[catalog.MethodExact], stages[catalog.MethodEmbedding]
	rows := []RecognitionRow{
		row(RecognitionExact, MetricAccuracy, ratio(exact.correct, exact.answered), "normalized substring match"),
		row(RecognitionExact, MetricCoverage, float64(exact.answered)/total, "normalized substring match"),
		row(RecognitionEmbedding, MetricAccuracy, ratio(emb.correct, emb.answered), "nearest name embedding above threshold"),
		row(RecognitionEmbedding, MetricCoverage, float64(emb.answered)/total, "nearest name embedding above threshold"),
		row(RecognitionOverall, MetricAccuracy, float64(correct)/total, "exact match with embedding fallback"),
	}

	s.logger.Info("Recognition evaluation finished",
		zap.Int("cases", len(cases)),
		zap.Int("exact", exact.answered),
		zap.Int("embedding", emb.answered),
		zap.Float64("accuracy", float64(correct)/total),
	)
	return rows, nil
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// WriteRecognitionCSV writes rows as semicolon-separated values with a header.
func WriteRecognitionCSV(w io.Writer, rows []RecognitionRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(recognitionHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Method, r.Metric, strconv.FormatFloat(r.Value, 'f', 3, 64),
			r.Description, r.DatasetVersion, r.CreatedAt,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadRecognitionCSV parses a report written by WriteRecognitionCSV.
func ReadRecognitionCSV(r io.Reader) ([]RecognitionRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = len(recognitionHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]RecognitionRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		v, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: value %q: %w", i+2, rec[2], err)
		}
		rows = append(rows, RecognitionRow{
			Method: rec[0], Metric: rec[1], Value: v,
			Description: rec[3], DatasetVersion: rec[4], CreatedAt: rec[5],
		})
	}
	return rows, nil
}

// MergeRecognition replaces rows sharing method, metric, dataset version and
// creation day; the remaining updates are appended in order.
func MergeRecognition(existing, updates []RecognitionRow) []RecognitionRow {
	return mergeBy(existing, updates, RecognitionRow.key)
}

// SaveRecognitionCSV merges rows into the report at path, creating it if needed.
func SaveRecognitionCSV(path string, rows []RecognitionRow) error {
	return saveMerged(path, rows, ReadRecognitionCSV, WriteRecognitionCSV, MergeRecognition)
}
