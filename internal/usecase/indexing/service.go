package indexing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/qadex/internal/domain"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
	"github.com/kailas-cloud/qadex/internal/domain/search/filter"
	"github.com/kailas-cloud/qadex/internal/metrics"
)

// Defaults for corpus indexing.
const (
	DefaultBatchSize = 100
	DefaultWorkers   = 4
)

// Report summarizes an indexing run.
type Report struct {
	Documents    int
	Batches      int
	IndexCreated bool
	// Indexed is the index size after the run.
	Indexed     int
	TotalTokens int
	Duration    time.Duration
}

// Service embeds corpus documents in batches on a worker pool and writes
// them to the search index.
type Service struct {
	docs      DocumentStore
	embed     Embedder
	dim       int
	batchSize int
	workers   int
	logger    *zap.Logger
}

// New creates an indexing service for embeddings of dimension dim.
func New(docs DocumentStore, embed Embedder, dim int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		docs:      docs,
		embed:     embed,
		dim:       dim,
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
		logger:    logger,
	}
}

// WithBatchSize sets the number of documents embedded and written together.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithWorkers sets the worker pool size.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// Index ensures the index exists (dropping it first when recreate is set)
// and writes docs. The first failed batch cancels the remaining ones.
func (s *Service) Index(ctx context.Context, docs []domdoc.Document, recreate bool) (Report, error) {
	start := time.Now()

	if err := domdoc.Validate(docs); err != nil {
		return Report{}, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}

	created, err := s.docs.EnsureIndex(ctx, s.dim, recreate)
	if err != nil {
		return Report{}, fmt.Errorf("ensure index: %w", err)
	}

	batches := split(docs, s.batchSize)
	report := Report{Documents: len(docs), Batches: len(batches), IndexCreated: created}

	tokens, err := s.run(ctx, batches)
	if err != nil {
		return report, err
	}
	report.TotalTokens = tokens

	report.Indexed, err = s.docs.Count(ctx, filter.Node{})
	if err != nil {
		return report, fmt.Errorf("count indexed documents: %w", err)
	}
	report.Duration = time.Since(start)

	s.logger.Info("Corpus indexed",
		zap.Int("documents", report.Documents),
		zap.Int("batches", report.Batches),
		zap.Bool("index_created", report.IndexCreated),
		zap.Int("indexed", report.Indexed),
		zap.Int("total_tokens", report.TotalTokens),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *Service) run(ctx context.Context, batches [][]domdoc.Document) (int, error) {
	if len(batches) == 0 {
		return 0, nil
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return 0, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		tokens   int
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for i, batch := range batches {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			n, err := s.indexBatch(ctx, batch)
			if err != nil {
				metrics.IndexedDocumentsTotal.WithLabelValues("failed").Add(float64(len(batch)))
				fail(fmt.Errorf("batch %d: %w", i, err))
				return
			}
			metrics.IndexedDocumentsTotal.WithLabelValues("ok").Add(float64(len(batch)))
			mu.Lock()
			tokens += n
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit batch %d: %w", i, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return 0, firstErr
	}
	return tokens, nil
}

func (s *Service) indexBatch(ctx context.Context, batch []domdoc.Document) (int, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].EmbeddingText()
	}

	res, err := domain.EmbedBatch(ctx, s.embed, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	for i, vec := range res.Embeddings {
		if len(vec) != s.dim {
			return 0, fmt.Errorf("document %s: embedding has %d dimensions, want %d: %w",
				batch[i].ID(), len(vec), s.dim, domain.ErrVectorDimMismatch)
		}
	}

	if err := s.docs.Upsert(ctx, batch, res.Embeddings); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	return res.TotalTokens, nil
}

func split(docs []domdoc.Document, size int) [][]domdoc.Document {
	batches := make([][]domdoc.Document, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		batches = append(batches, docs[start:min(start+size, len(docs))])
	}
	return batches
}
