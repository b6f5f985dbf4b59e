package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/qadex/internal/repository/source"
	chiTransport "github.com/kailas-cloud/qadex/internal/transport/chi"
	evaluationuc "github.com/kailas-cloud/qadex/internal/usecase/evaluation"
	"github.com/kailas-cloud/qadex/internal/version"
)

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Close()
	cfg, logger := app.cfg, app.logger

	logger.Info("Starting qadex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", c.String("env")),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	if err := app.loadCatalog(ctx); err != nil {
		return err
	}

	server := chiTransport.NewServer(
		app.search(), app.entityResolver(), app.catalogSource(), app.health(), logger,
	).WithDocuments(app.documents())
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func indexCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Close()

	path := firstNonEmpty(c.String("corpus"), app.cfg.Indexing.CorpusPath)
	if path == "" {
		return fmt.Errorf("no corpus file: set --corpus or indexing.corpus_path")
	}
	docs, err := source.LoadCorpus(path)
	if err != nil {
		return err
	}

	svc := app.indexer()
	if n := c.Int("batch-size"); n > 0 {
		svc = svc.WithBatchSize(n)
	}
	if n := c.Int("workers"); n > 0 {
		svc = svc.WithWorkers(n)
	}

	report, err := svc.Index(ctx, docs, c.Bool("recreate"))
	if err != nil {
		return fmt.Errorf("index %s: %w", path, err)
	}
	app.logger.Info("Corpus indexed",
		zap.String("corpus", path),
		zap.Int("documents", report.Documents),
		zap.Int("batches", report.Batches),
		zap.Bool("index_created", report.IndexCreated),
		zap.Int("indexed", report.Indexed),
		zap.Int("total_tokens", report.TotalTokens),
		zap.Duration("duration", report.Duration),
	)
	return nil
}

func resolveCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("usage: qadex resolve <text>")
	}

	app, err := newApp(c.Context, c)
	if err != nil {
		return err
	}
	defer app.Close()

	if p := c.String("catalog"); p != "" {
		app.cfg.Resolver.CatalogPath = p
	}
	if app.cfg.Resolver.CatalogPath == "" {
		return fmt.Errorf("no catalog file: set --catalog or resolver.catalog_path")
	}
	if err := app.loadCatalog(c.Context); err != nil {
		return err
	}

	id, ok, err := app.resolver.Resolve(c.Context, text)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	resp := chiTransport.ResolveResponse{Match: ok}
	if ok {
		resp.Entity = &chiTransport.Entity{
			ID: id.ID, Name: id.Name, Confidence: id.Confidence, Method: string(id.Method),
		}
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func evalCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Close()

	path := firstNonEmpty(c.String("dataset"), app.cfg.Evaluation.DatasetPath)
	recognition := firstNonEmpty(c.String("recognition-dataset"), app.cfg.Evaluation.RecognitionDatasetPath)
	if path == "" && recognition == "" {
		return fmt.Errorf("no dataset file: set --dataset, --recognition-dataset or evaluation.dataset_path")
	}
	if err := app.loadCatalog(ctx); err != nil {
		return err
	}

	if path != "" {
		if err := evalRetrieval(ctx, c, app, path); err != nil {
			return err
		}
	}
	if recognition != "" {
		return evalRecognition(ctx, c, app, recognition)
	}
	return nil
}

func evalRetrieval(ctx context.Context, c *cli.Context, a *app, path string) error {
	cases, err := source.LoadDataset(path)
	if err != nil {
		return err
	}

	budget := a.cfg.Retrieval.Budget
	if n := c.Int("budget"); n > 0 {
		budget = n
	}
	svc := evaluationuc.New(a.search(), evaluationuc.Config{
		Budget: budget,
		Ks:     a.cfg.Evaluation.Ks,
		Model:  a.cfg.Embedding.Model,
	}, a.logger)

	rows, err := svc.Run(ctx, cases)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", path, err)
	}
	if err := evaluationuc.WriteCSV(c.App.Writer, rows); err != nil {
		return err
	}

	if report := firstNonEmpty(c.String("report"), a.cfg.Evaluation.ReportPath); report != "" {
		if err := evaluationuc.SaveCSV(report, rows); err != nil {
			return err
		}
		a.logger.Info("Evaluation report saved", zap.String("path", report), zap.Int("rows", len(rows)))
	}
	return nil
}

func evalRecognition(ctx context.Context, c *cli.Context, a *app, path string) error {
	if a.resolver == nil {
		return fmt.Errorf("entity recognition needs resolver.catalog_path")
	}
	cases, err := source.LoadRecognitionDataset(path)
	if err != nil {
		return err
	}

	svc := evaluationuc.NewRecognition(a.resolver, evaluationuc.RecognitionConfig{
		DatasetVersion: firstNonEmpty(c.String("dataset-version"), a.cfg.Evaluation.DatasetVersion),
	}, a.logger)
	rows, err := svc.Run(ctx, cases)
	if err != nil {
		return fmt.Errorf("evaluate recognition %s: %w", path, err)
	}
	if err := evaluationuc.WriteRecognitionCSV(c.App.Writer, rows); err != nil {
		return err
	}

	if report := firstNonEmpty(c.String("recognition-report"), a.cfg.Evaluation.RecognitionReportPath); report != "" {
		if err := evaluationuc.SaveRecognitionCSV(report, rows); err != nil {
			return err
		}
		a.logger.Info("Recognition report saved", zap.String("path", report), zap.Int("rows", len(rows)))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
