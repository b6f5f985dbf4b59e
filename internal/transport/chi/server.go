package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/qadex/internal/domain"
	"github.com/kailas-cloud/qadex/internal/domain/catalog"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
	"github.com/kailas-cloud/qadex/internal/domain/search/request"
	"github.com/kailas-cloud/qadex/internal/domain/search/result"
	"github.com/kailas-cloud/qadex/internal/logger"
	healthuc "github.com/kailas-cloud/qadex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/qadex/internal/usecase/search"
)

const maxBodyBytes = 1 << 20

// Searcher runs retrieval.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (result.Retrieval, error)
	Answer(ctx context.Context, req request.Request, resolve bool) (searchuc.Answer, error)
}

// EntityResolver resolves text to catalog entities and swaps catalogs.
type EntityResolver interface {
	Resolve(ctx context.Context, text string) (catalog.Identified, bool, error)
	Reload(ctx context.Context, entities []catalog.Entity) error
}

// CatalogSource reads the current entity catalog.
type CatalogSource interface {
	Load(ctx context.Context) ([]catalog.Entity, error)
}

// DocumentReader fetches stored corpus documents.
type DocumentReader interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the qadex HTTP API.
type Server struct {
	search        Searcher
	resolver      EntityResolver
	catalog       CatalogSource
	health        HealthChecker
	docs          DocumentReader
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. resolver and catalog can be nil.
func NewServer(
	search Searcher,
	resolver EntityResolver,
	catalog CatalogSource,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		resolver: resolver,
		catalog:  catalog,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		retrievalErrorHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrResolverDisabled, http.StatusServiceUnavailable, ErrorCodeResolverDisabled),
		sentinelHandler(domain.ErrInvalidAccessContext,
			http.StatusInternalServerError, ErrorCodeConfigurationError),
		sentinelHandler(domain.ErrCatalogEmpty, http.StatusInternalServerError, ErrorCodeCatalogInvalid),
	}
	return s
}

// WithDocuments enables GET /v1/documents/{documentID}.
func (s *Server) WithDocuments(d DocumentReader) *Server {
	s.docs = d
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Post("/v1/search", s.SearchAnswers)
	r.Post("/v1/retrieve", s.Retrieve)
	r.Get("/v1/resolve", s.ResolveEntity)
	r.Post("/v1/catalog/reload", s.ReloadCatalog)
	r.Get("/v1/documents/{documentID}", s.GetDocument)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchAnswers handles POST /v1/search.
func (s *Server) SearchAnswers(w http.ResponseWriter, r *http.Request) {
	body, req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}

	resolve := body.ResolveScope == nil || *body.ResolveScope
	ans, err := s.search.Answer(r.Context(), req, resolve)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]Hit, len(ans.Hits))
	for i := range ans.Hits {
		items[i] = fusedToAPI(ans.Hits[i])
	}
	resp := SearchResponse{
		Items:       items,
		TextCount:   ans.TextCount,
		VectorCount: ans.VectorCount,
	}
	if ans.Entity != nil {
		resp.Entity = entityToAPI(*ans.Entity)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	_, req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}

	ret, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RetrieveResponse{
		Text:   hitsToAPI(ret.Text),
		Vector: hitsToAPI(ret.Vector),
	})
}

// ResolveEntity handles GET /v1/resolve.
func (s *Server) ResolveEntity(w http.ResponseWriter, r *http.Request) {
	var params ResolveParams
	if err := runtime.BindQueryParameter("form", true, true, "text", r.URL.Query(), &params.Text); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameter text")
		return
	}
	if len(params.Text) > request.MaxQuestionLength {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "text too long")
		return
	}
	if s.resolver == nil {
		s.handleDomainError(w, r, domain.ErrResolverDisabled)
		return
	}

	id, ok, err := s.resolver.Resolve(r.Context(), params.Text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, ResolveResponse{Match: false})
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Match: true, Entity: entityToAPI(id)})
}

// ReloadCatalog handles POST /v1/catalog/reload.
func (s *Server) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil || s.catalog == nil {
		s.handleDomainError(w, r, domain.ErrResolverDisabled)
		return
	}

	entities, err := s.catalog.Load(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("catalog load failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrorCodeCatalogInvalid, "catalog could not be loaded")
		return
	}
	if err := s.resolver.Reload(r.Context(), entities); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("Entity catalog reloaded", zap.Int("entities", len(entities)))
	writeJSON(w, http.StatusOK, ReloadResponse{Entities: len(entities)})
}

// GetDocument handles GET /v1/documents/{documentID}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		s.handleDomainError(w, r, domain.ErrNotFound)
		return
	}
	doc, err := s.docs.Get(r.Context(), gochi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Document{
		DocumentID:         doc.ID(),
		TenantID:           doc.TenantID(),
		Category:           doc.Category(),
		Question:           doc.Question(),
		Answer:             doc.Answer(),
		AnswerInstructions: result.Optional(doc.AnswerInstructions()),
		ProjectID:          result.Optional(doc.ProjectID()),
		ProjectName:        result.Optional(doc.ProjectName()),
		AuthorizationID:    result.Optional(doc.AuthorizationID()),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeSearch reads and validates a SearchRequest. On failure it writes the
// error response and returns ok=false.
func (s *Server) decodeSearch(w http.ResponseWriter, r *http.Request) (SearchRequest, request.Request, bool) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return SearchRequest{}, request.Request{}, false
	}

	req, err := request.New(
		body.Question, derefInt(body.Budget), derefInt(body.TopK),
		derefString(body.ScopeID), body.AuthorizationIDs, fieldWeightsFromAPI(body.FieldWeights),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return SearchRequest{}, request.Request{}, false
	}
	if body.TenantID != nil {
		req = req.WithTenant(*body.TenantID)
	}
	return body, req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrRetrieval,
		domain.ErrInvalidRequest,
		domain.ErrNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrResolverDisabled,
		domain.ErrInvalidAccessContext,
		domain.ErrCatalogEmpty,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// retrievalErrorHandler reports the failed channel with the error.
func retrievalErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	var re *domain.RetrievalError
	if !errors.As(err, &re) {
		return false
	}
	writeJSON(w, http.StatusBadGateway, ErrorResponse{
		Code:    ErrorCodeRetrievalFailed,
		Message: msg,
		Channel: re.Channel,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

// fieldWeightsFromAPI orders known fields first, then unknown ones by name so
// validation reports them deterministically.
func fieldWeightsFromAPI(m map[string]float64) []request.FieldWeight {
	if len(m) == 0 {
		return nil
	}
	known := []string{request.FieldQuestion, request.FieldAnswer, request.FieldCategory, request.FieldProjectName}
	out := make([]request.FieldWeight, 0, len(m))
	for _, f := range known {
		if w, ok := m[f]; ok {
			out = append(out, request.FieldWeight{Field: f, Weight: w})
		}
	}
	var unknown []string
	for f := range m {
		if !slices.Contains(known, f) {
			unknown = append(unknown, f)
		}
	}
	slices.Sort(unknown)
	for _, f := range unknown {
		out = append(out, request.FieldWeight{Field: f, Weight: m[f]})
	}
	return out
}

func hitToAPI(h result.Hit) Hit {
	return Hit{
		DocumentID:         h.DocumentID,
		Score:              h.Score,
		Category:           h.Category,
		Question:           h.Question,
		Answer:             h.Answer,
		AnswerInstructions: h.AnswerInstructions,
		ProjectID:          h.ProjectID,
		ProjectName:        h.ProjectName,
		AuthorizationID:    h.AuthorizationID,
	}
}

func hitsToAPI(hits []result.Hit) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = hitToAPI(h)
	}
	return out
}

func fusedToAPI(f result.Fused) Hit {
	h := hitToAPI(f.Hit)
	if f.TextRank > 0 {
		h.TextRank = &f.TextRank
	}
	if f.VectorRank > 0 {
		h.VectorRank = &f.VectorRank
	}
	return h
}

func entityToAPI(id catalog.Identified) *Entity {
	return &Entity{
		ID:         id.ID,
		Name:       id.Name,
		Confidence: id.Confidence,
		Method:     string(id.Method),
	}
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
