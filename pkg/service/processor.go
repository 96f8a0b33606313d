package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/yurifrl/gastos/pkg/categorize"
	"github.com/yurifrl/gastos/pkg/events"
	"github.com/yurifrl/gastos/pkg/importer"
	"github.com/yurifrl/gastos/pkg/models"
	"github.com/yurifrl/gastos/pkg/parser"
	"github.com/yurifrl/gastos/pkg/reconcile"
	"github.com/yurifrl/gastos/pkg/storage"
)

var (
	ErrUnknownCategory     = errors.New("unknown category")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type Options struct {
	Ledgers  storage.LedgerStore
	Mappings storage.MappingStore
	Engine   *categorize.Engine
	Parser   *parser.Parser
	Events   events.Publisher
	Logger   *log.Logger
}

// Processor runs statement uploads through parsing, categorization and the
// ledger merge. Writes to one profile are serialized; different profiles
// proceed in parallel.
type Processor struct {
	ledgers  storage.LedgerStore
	mappings storage.MappingStore
	engine   *categorize.Engine
	parser   *parser.Parser
	importer *importer.Importer
	events   events.Publisher
	logger   *log.Logger

	mapMu      sync.Mutex
	muMap      map[string]*sync.Mutex
	mappingsMu sync.Mutex
}

func New(opts Options) *Processor {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Engine == nil {
		opts.Engine = categorize.New()
	}
	if opts.Parser == nil {
		opts.Parser = parser.New(opts.Logger)
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	return &Processor{
		ledgers:  opts.Ledgers,
		mappings: opts.Mappings,
		engine:   opts.Engine,
		parser:   opts.Parser,
		importer: importer.New(opts.Engine, opts.Logger),
		events:   opts.Events,
		logger:   opts.Logger,
		muMap:    make(map[string]*sync.Mutex),
	}
}

func (p *Processor) profileLock(profile string) *sync.Mutex {
	p.mapMu.Lock()
	defer p.mapMu.Unlock()

	if _, exists := p.muMap[profile]; !exists {
		p.muMap[profile] = &sync.Mutex{}
	}
	return p.muMap[profile]
}

// Result summarizes one committed import.
type Result struct {
	ImportID string
	Profile  string
	Source   string
	Report   *reconcile.Report
	Learned  int
}

func (p *Processor) Categories() []string {
	return p.engine.Labels()
}

// Preview parses and categorizes a statement without touching any ledger.
func (p *Processor) Preview(ctx context.Context, filename string, data []byte) ([]models.Transaction, error) {
	table, err := p.parser.ProcessBytes(data, filename)
	if err != nil {
		return nil, err
	}

	learned, err := p.mappings.LoadMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load learned mappings: %w", err)
	}
	return p.importer.Process(table, learned), nil
}

// Import previews a statement and commits it to the profile ledger.
func (p *Processor) Import(ctx context.Context, profile, filename string, data []byte) (*Result, error) {
	txs, err := p.Preview(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	return p.commit(ctx, profile, filename, txs, nil)
}

// Commit merges rows into the profile ledger and saves it. When the save
// fails the stored ledger is unchanged. Corrections, if any, are learned only
// after the ledger was saved.
func (p *Processor) Commit(ctx context.Context, profile, source string, rows []models.Transaction, corrections *models.Mappings) (*Result, error) {
	for _, tx := range rows {
		if c := strings.TrimSpace(tx.Category); c != "" && !p.engine.Valid(c) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
	}
	return p.commit(ctx, profile, source, rows, corrections)
}

// commit trusts the categories of rows; they come from the engine or were
// checked by Commit.
func (p *Processor) commit(ctx context.Context, profile, source string, rows []models.Transaction, corrections *models.Mappings) (*Result, error) {
	profile, err := models.NormalizeProfile(profile)
	if err != nil {
		return nil, err
	}

	mu := p.profileLock(profile)
	mu.Lock()
	defer mu.Unlock()

	existing, err := p.ledgers.Load(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger of %s: %w", profile, err)
	}

	report := reconcile.Merge(existing, rows)
	if err := p.ledgers.Save(ctx, profile, report.Ledger); err != nil {
		return nil, fmt.Errorf("failed to save ledger of %s: %w", profile, err)
	}

	result := &Result{
		ImportID: uuid.NewString(),
		Profile:  profile,
		Source:   source,
		Report:   report,
	}
	p.logger.Info("ledger merged",
		"profile", profile,
		"source", source,
		"new", report.NewCount(),
		"duplicates", report.DuplicateCount(),
		"updated", report.UpdatedCount(),
		"ledger_size", len(report.Ledger))

	if corrections.Len() > 0 {
		learned, err := p.Learn(ctx, corrections)
		if err != nil {
			return result, fmt.Errorf("ledger saved but learning failed: %w", err)
		}
		result.Learned = learned
	}

	p.publish(ctx, result)
	return result, nil
}

func (p *Processor) publish(ctx context.Context, r *Result) {
	event := events.LedgerMerged{
		ImportID:   r.ImportID,
		Profile:    r.Profile,
		Source:     r.Source,
		New:        r.Report.NewCount(),
		Duplicates: r.Report.DuplicateCount(),
		Updated:    r.Report.UpdatedCount(),
		Learned:    r.Learned,
		LedgerSize: len(r.Report.Ledger),
		At:         time.Now().UTC(),
	}
	if err := p.events.Publish(ctx, event); err != nil {
		p.logger.Warn("failed to publish ledger event", "import_id", r.ImportID, "err", err)
	}
}

// Learn adds explicit corrections to the learned mappings and returns how many
// were applied. Others is never learned.
func (p *Processor) Learn(ctx context.Context, corrections *models.Mappings) (int, error) {
	for _, concept := range corrections.Keys() {
		category, _ := corrections.Get(concept)
		if !p.engine.Valid(category) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
	}

	p.mappingsMu.Lock()
	defer p.mappingsMu.Unlock()

	learned, err := p.mappings.LoadMappings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load learned mappings: %w", err)
	}

	applied := 0
	for _, concept := range corrections.Keys() {
		category, _ := corrections.Get(concept)
		if strings.TrimSpace(concept) == "" || category == models.CategoryOthers {
			continue
		}
		learned.Set(strings.TrimSpace(concept), category)
		applied++
	}
	if applied == 0 {
		return 0, nil
	}

	if err := p.mappings.SaveMappings(ctx, learned); err != nil {
		return 0, fmt.Errorf("failed to save learned mappings: %w", err)
	}
	p.logger.Info("learned mappings updated", "applied", applied, "total", learned.Len())
	return applied, nil
}

// SetCategory changes the category of a stored transaction and learns the
// concept unless the new category is Others.
func (p *Processor) SetCategory(ctx context.Context, profile, fingerprint, category string) (models.Transaction, error) {
	profile, err := models.NormalizeProfile(profile)
	if err != nil {
		return models.Transaction{}, err
	}
	if !p.engine.Valid(category) {
		return models.Transaction{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	mu := p.profileLock(profile)
	mu.Lock()
	defer mu.Unlock()

	ledger, err := p.ledgers.Load(ctx, profile)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to load ledger of %s: %w", profile, err)
	}

	idx := -1
	for i := range ledger {
		ledger[i].EnsureFingerprint()
		if ledger[i].Fingerprint == fingerprint {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, fingerprint)
	}

	ledger[idx].Category = category
	if err := p.ledgers.Save(ctx, profile, ledger); err != nil {
		return models.Transaction{}, fmt.Errorf("failed to save ledger of %s: %w", profile, err)
	}

	if category != models.CategoryOthers {
		correction := models.NewMappings()
		correction.Set(ledger[idx].Concept, category)
		if _, err := p.Learn(ctx, correction); err != nil {
			return ledger[idx], fmt.Errorf("category saved but learning failed: %w", err)
		}
	}
	return ledger[idx], nil
}

func (p *Processor) Ledger(ctx context.Context, profile string) ([]models.Transaction, error) {
	profile, err := models.NormalizeProfile(profile)
	if err != nil {
		return nil, err
	}
	ledger, err := p.ledgers.Load(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger of %s: %w", profile, err)
	}
	for i := range ledger {
		ledger[i].EnsureFingerprint()
	}
	return ledger, nil
}

// Review returns the outflows still waiting for a category.
func (p *Processor) Review(ctx context.Context, profile string) ([]models.Transaction, error) {
	ledger, err := p.Ledger(ctx, profile)
	if err != nil {
		return nil, err
	}
	var out []models.Transaction
	for _, tx := range ledger {
		if tx.NeedsReview() {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Uncategorized returns stored transactions also present in rows that still
// lack a category.
func (p *Processor) Uncategorized(ctx context.Context, profile string, rows []models.Transaction) ([]models.Transaction, error) {
	ledger, err := p.Ledger(ctx, profile)
	if err != nil {
		return nil, err
	}
	return reconcile.Uncategorized(ledger, rows), nil
}

// Months lists the YYYY-MM months present in the ledger, newest first.
func (p *Processor) Months(ctx context.Context, profile string) ([]string, error) {
	ledger, err := p.Ledger(ctx, profile)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var months []string
	for _, tx := range ledger {
		if !tx.HasDate() {
			continue
		}
		m := tx.Date.Format("2006-01")
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months, nil
}

// DateRange returns the first and last dated transaction; ok is false when
// nothing is dated.
func (p *Processor) DateRange(ctx context.Context, profile string) (from, to time.Time, ok bool, err error) {
	ledger, err := p.Ledger(ctx, profile)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	for _, tx := range ledger {
		if !tx.HasDate() {
			continue
		}
		if !ok || tx.Date.Before(from) {
			from = tx.Date
		}
		if !ok || tx.Date.After(to) {
			to = tx.Date
		}
		ok = true
	}
	return from, to, ok, nil
}

// ProcessDirectory imports every supported statement in dir. A file that
// fails is logged and skipped.
func (p *Processor) ProcessDirectory(ctx context.Context, profile, dir string) ([]*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}

	var results []*Result
	for _, entry := range entries {
		result, err := p.processEntry(ctx, profile, dir, entry)
		if err != nil {
			p.logger.Error("failed to process entry", "file", entry.Name(), "error", err)
			continue
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}

func (p *Processor) processEntry(ctx context.Context, profile, dir string, entry os.DirEntry) (*Result, error) {
	if entry.IsDir() || !parser.Supported(entry.Name()) {
		return nil, nil
	}

	inputPath := filepath.Join(dir, entry.Name())
	p.logger.Info("processing file", "path", inputPath, "type", parser.DetectType(entry.Name()))

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	result, err := p.Import(ctx, profile, entry.Name(), data)
	if err != nil {
		return nil, err
	}

	p.logger.Info("processed file successfully", "input", inputPath, "new", result.Report.NewCount())
	return result, nil
}
