package importer

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/gastos/pkg/categorize"
	"github.com/yurifrl/gastos/pkg/models"
	"github.com/yurifrl/gastos/pkg/normalize"
)

// Importer turns a parsed statement table into categorized transactions.
// It is decoupled from CLI / HTTP details so both layers share it.
type Importer struct {
	engine *categorize.Engine
	logger *log.Logger
}

func New(engine *categorize.Engine, logger *log.Logger) *Importer {
	return &Importer{engine: engine, logger: logger}
}

// Process normalizes every row of table. Inflows are Income; outflows are
// categorized with the learned mappings and the rule table. Rows with neither
// an amount nor a date carry no information and are dropped.
func (i *Importer) Process(table *models.RawTable, learned *models.Mappings) []models.Transaction {
	out := make([]models.Transaction, 0, len(table.Rows))
	for n, row := range table.Rows {
		concept := table.Value(row, models.ColumnConcept)
		if concept == "" || strings.EqualFold(concept, "nan") {
			continue
		}

		tx := models.Transaction{
			Concept:       concept,
			CardReference: table.Value(row, models.ColumnCard),
			Amount:        normalize.ParseAmount(table.Value(row, models.ColumnAmount)),
		}
		if d, ok := normalize.ParseDate(table.Value(row, models.ColumnDate)); ok {
			tx.Date = d
		}

		if tx.Amount.IsZero() && !tx.HasDate() {
			i.logger.Debug("skipping row without amount and date", "row", n, "concept", concept)
			continue
		}

		switch {
		case tx.Amount.IsPositive():
			tx.Category = models.CategoryIncome
		case tx.Amount.IsNegative():
			if category, ok := i.engine.Categorize(concept, learned); ok {
				tx.Category = category
			}
		}

		tx.EnsureFingerprint()
		out = append(out, tx)
	}
	return out
}

// DominantMonth returns the YYYY-MM holding most dated transactions, the
// earliest on ties, or "unknown" when nothing is dated.
func DominantMonth(txs []models.Transaction) string {
	counts := map[string]int{}
	for _, tx := range txs {
		if tx.HasDate() {
			counts[tx.Date.Format("2006-01")]++
		}
	}
	if len(counts) == 0 {
		return "unknown"
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	best := months[0]
	for _, m := range months[1:] {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return best
}
