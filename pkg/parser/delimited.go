package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yurifrl/gastos/pkg/models"
)

var delimiters = []rune{';', ',', '\t', '|'}

// parseDelimited reads a semicolon (or otherwise) separated export, skipping
// banner lines above the header and rows it cannot read.
func (p *Parser) parseDelimited(data []byte) (*models.RawTable, error) {
	text, enc := decodeText(data)
	p.logger.Debug("decoded statement", "encoding", enc)

	delimiter := delimiters[0]
	start := 0
	found := false
	for _, d := range delimiters {
		// A header that does not split on d is a match for another delimiter.
		if idx, names, ok := FindHeader(text, d); ok && len(names) > 1 {
			delimiter, start, found = d, idx, true
			break
		}
	}
	if !found {
		delimiter = sniffDelimiter(text)
		p.logger.Debug("no header line found, using first line", "delimiter", string(delimiter))
	}

	lines := strings.Split(text, "\n")
	if start > 0 {
		lines = lines[start:]
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var header []string
	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				p.logger.Debug("skipping malformed line", "line", perr.StartLine, "err", perr.Err)
				continue
			}
			return nil, fmt.Errorf("failed to read delimited text: %w", err)
		}

		if header == nil {
			header = record
			continue
		}
		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			p.logger.Debug("skipping line with extra fields", "line", line, "fields", len(record))
			continue
		}
		rows = append(rows, record)
	}

	if header == nil {
		return nil, fmt.Errorf("statement is empty")
	}
	return normalizeTable(header, rows)
}

// sniffDelimiter picks the candidate that occurs most often on the first
// non-blank line, preferring earlier candidates on ties.
func sniffDelimiter(text string) rune {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		best, count := delimiters[0], 0
		for _, d := range delimiters {
			if n := strings.Count(line, string(d)); n > count {
				best, count = d, n
			}
		}
		return best
	}
	return delimiters[0]
}
