package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/gastos/pkg/categorize"
	"github.com/yurifrl/gastos/pkg/csv"
	"github.com/yurifrl/gastos/pkg/importer"
	"github.com/yurifrl/gastos/pkg/models"
	"github.com/yurifrl/gastos/pkg/parser"
	"github.com/yurifrl/gastos/pkg/service"
)

const maxUpload = 32 << 20

// Server exposes statement upload, review and ledger queries over HTTP.
type Server struct {
	processor *service.Processor
	logger    *log.Logger
	mux       *http.ServeMux
}

func New(processor *service.Processor, logger *log.Logger) *Server {
	s := &Server{
		processor: processor,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/categories", s.withLogging(s.handleCategories))
	s.mux.HandleFunc("POST /api/preview", s.withLogging(s.handlePreview))
	s.mux.HandleFunc("POST /api/import", s.withLogging(s.handleImport))
	s.mux.HandleFunc("POST /api/mappings", s.withLogging(s.handleMappings))

	s.mux.HandleFunc("POST /api/profiles/{profile}/commit", s.withLogging(s.handleCommit))
	s.mux.HandleFunc("GET /api/profiles/{profile}/transactions", s.withLogging(s.handleTransactions))
	s.mux.HandleFunc("PUT /api/profiles/{profile}/transactions/{fingerprint}/category", s.withLogging(s.handleSetCategory))
	s.mux.HandleFunc("GET /api/profiles/{profile}/review", s.withLogging(s.handleReview))
	s.mux.HandleFunc("GET /api/profiles/{profile}/months", s.withLogging(s.handleMonths))
}

// Row is the JSON shape of a transaction under review. SuggestedCategory is
// what the categorizer proposed; Category is what the user kept or chose.
type Row struct {
	Fingerprint       string          `json:"fingerprint,omitempty"`
	Date              string          `json:"date"`
	Concept           string          `json:"concept"`
	Card              string          `json:"card,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Category          string          `json:"category"`
	SuggestedCategory string          `json:"suggested_category"`
	NeedsReview       bool            `json:"needs_review"`
}

func toRows(txs []models.Transaction) []Row {
	rows := make([]Row, len(txs))
	for i, t := range txs {
		rows[i] = Row{
			Fingerprint:       t.Fingerprint,
			Date:              t.DateString(),
			Concept:           t.Concept,
			Card:              t.CardReference,
			Amount:            t.Amount,
			Category:          t.Category,
			SuggestedCategory: t.Category,
			NeedsReview:       t.NeedsReview(),
		}
	}
	return rows
}

func (r Row) transaction() (models.Transaction, error) {
	t := models.Transaction{
		Concept:       strings.TrimSpace(r.Concept),
		CardReference: r.Card,
		Amount:        r.Amount,
		Category:      strings.TrimSpace(r.Category),
	}
	if r.Date != "" {
		d, err := time.Parse(models.DateLayout, r.Date)
		if err != nil {
			return t, fmt.Errorf("invalid date %q: %w", r.Date, err)
		}
		t.Date = d
	}
	// The fingerprint is recomputed so a client cannot smuggle in another one.
	t.EnsureFingerprint()
	return t, nil
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.ok(w, map[string]any{
		"status":     "success",
		"categories": s.processor.Categories(),
	})
}

func (s *Server) readStatement(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("statement")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "statement file required", err)
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to read file", err)
		return "", nil, false
	}
	return header.Filename, data, true
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readStatement(w, r)
	if !ok {
		return
	}

	txs, err := s.processor.Preview(r.Context(), filename, data)
	if err != nil {
		s.fail(w, r, "failed to process file", err)
		return
	}

	resp := map[string]any{
		"status": "success",
		"file":   filename,
		"month":  importer.DominantMonth(txs),
		"data":   toRows(txs),
	}
	if profile := r.FormValue("profile"); profile != "" {
		pending, err := s.processor.Uncategorized(r.Context(), profile, txs)
		if err != nil {
			s.fail(w, r, "failed to load ledger", err)
			return
		}
		resp["uncategorized"] = toRows(pending)
	}
	s.ok(w, resp)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readStatement(w, r)
	if !ok {
		return
	}
	profile := r.FormValue("profile")
	if profile == "" {
		s.respondError(w, r, http.StatusBadRequest, "profile required", nil)
		return
	}

	result, err := s.processor.Import(r.Context(), profile, filename, data)
	if err != nil {
		s.fail(w, r, "import failed", err)
		return
	}
	s.ok(w, resultBody(result))
}

type commitRequest struct {
	Source string `json:"source"`
	Rows   []Row  `json:"rows"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpload)).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rows := make([]models.Transaction, 0, len(req.Rows))
	edits := make([]categorize.Correction, 0, len(req.Rows))
	for _, row := range req.Rows {
		tx, err := row.transaction()
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid row", err)
			return
		}
		rows = append(rows, tx)
		edits = append(edits, categorize.Correction{
			Concept:   tx.Concept,
			Suggested: row.SuggestedCategory,
			Chosen:    tx.Category,
		})
	}

	result, err := s.processor.Commit(r.Context(), r.PathValue("profile"), req.Source, rows, categorize.Corrections(edits))
	if err != nil && result == nil {
		s.fail(w, r, "commit failed", err)
		return
	}
	body := resultBody(result)
	if err != nil {
		// The ledger was saved; only learning failed.
		s.logger.Warn("commit partially failed", "import_id", result.ImportID, "err", err)
		body["warning"] = err.Error()
	}
	s.ok(w, body)
}

func resultBody(result *service.Result) map[string]any {
	return map[string]any{
		"status":      "success",
		"import_id":   result.ImportID,
		"profile":     result.Profile,
		"new":         result.Report.NewCount(),
		"duplicates":  result.Report.DuplicateCount(),
		"updated":     result.Report.UpdatedCount(),
		"learned":     result.Learned,
		"ledger_size": len(result.Report.Ledger),
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := csv.ParseFilter(q.Get("start"), q.Get("end"), q.Get("min"), q.Get("max"), q.Get("concept"), q.Get("category"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid filter", err)
		return
	}

	profile := r.PathValue("profile")
	ledger, err := s.processor.Ledger(r.Context(), profile)
	if err != nil {
		s.fail(w, r, "failed to load ledger", err)
		return
	}

	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s-transactions.csv\"", strings.ToLower(profile)))
		if _, err := w.Write(csv.Create(ledger, filter.Func())); err != nil {
			s.logger.Warn("failed to write csv response", "err", err)
		}
		return
	}

	s.ok(w, map[string]any{
		"status": "success",
		"data":   toRows(csv.Apply(ledger, filter.Func())),
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	txs, err := s.processor.Review(r.Context(), r.PathValue("profile"))
	if err != nil {
		s.fail(w, r, "failed to load ledger", err)
		return
	}
	s.ok(w, map[string]any{
		"status":     "success",
		"data":       toRows(txs),
		"categories": s.processor.Categories(),
	})
}

func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	tx, err := s.processor.SetCategory(r.Context(), r.PathValue("profile"), r.PathValue("fingerprint"), req.Category)
	if err != nil {
		s.fail(w, r, "failed to set category", err)
		return
	}
	s.ok(w, map[string]any{"status": "success", "data": toRows([]models.Transaction{tx})[0]})
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	profile := r.PathValue("profile")
	months, err := s.processor.Months(r.Context(), profile)
	if err != nil {
		s.fail(w, r, "failed to load ledger", err)
		return
	}
	resp := map[string]any{"status": "success", "months": months}
	from, to, ok, err := s.processor.DateRange(r.Context(), profile)
	if err != nil {
		s.fail(w, r, "failed to load ledger", err)
		return
	}
	if ok {
		resp["from"] = from.Format(models.DateLayout)
		resp["to"] = to.Format(models.DateLayout)
	}
	s.ok(w, resp)
}

// handleMappings learns a JSON object of concept -> category pairs.
func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	corrections := models.NewMappings()
	if err := json.NewDecoder(r.Body).Decode(corrections); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	learned, err := s.processor.Learn(r.Context(), corrections)
	if err != nil {
		s.fail(w, r, "failed to learn mappings", err)
		return
	}
	s.ok(w, map[string]any{"status": "success", "learned": learned})
}

// --- helpers ---

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var missing *parser.MissingColumnError
	var parse *parser.FileParseError
	switch {
	case errors.As(err, &missing), errors.As(err, &parse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidProfile), errors.Is(err, service.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTransactionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	s.respondError(w, r, status, message, err)
}

func (s *Server) ok(w http.ResponseWriter, v any) {
	if err := s.writeJSON(w, http.StatusOK, v); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
			s.logger.Debug("http request done", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
		}()
		next(w, r)
	}
}
