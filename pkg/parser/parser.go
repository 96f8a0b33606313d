package parser

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/gastos/pkg/models"
)

type FileType string

const (
	Delimited FileType = "delimited"
	XLSX      FileType = "xlsx"
	XLS       FileType = "xls"
	PDF       FileType = "pdf"
)

type Parser struct {
	logger  *log.Logger
	layouts []Layout
}

type Option func(*Parser)

// WithLayouts replaces the PDF layouts, tried in order.
func WithLayouts(layouts ...Layout) Option {
	return func(p *Parser) {
		p.layouts = layouts
	}
}

func New(logger *log.Logger, opts ...Option) *Parser {
	p := &Parser{
		logger:  logger,
		layouts: []Layout{DefaultColumnLayout()},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessBytes parses a statement upload into a table with canonical column
// names. Failures to read the file structure are returned as *FileParseError,
// missing required columns as *MissingColumnError.
func (p *Parser) ProcessBytes(data []byte, filename string) (*models.RawTable, error) {
	fileType := DetectType(filename)
	p.logger.Debug("detected file type", "type", fileType, "filename", filename)

	var (
		table *models.RawTable
		err   error
	)
	switch fileType {
	case PDF:
		table, err = p.parsePDF(data)
	case XLSX:
		table, err = p.parseXLSX(data)
	case XLS:
		table, err = p.parseXLS(data)
	default:
		table, err = p.parseDelimited(data)
	}
	if err != nil {
		var missing *MissingColumnError
		if errors.As(err, &missing) {
			return nil, err
		}
		return nil, &FileParseError{Filename: filename, Err: err}
	}

	p.logger.Debug("parsed statement", "filename", filename, "rows", len(table.Rows), "columns", table.Columns)
	return table, nil
}

// DetectType picks the reader from the file extension. Unknown extensions are
// read as delimited text.
func DetectType(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return PDF
	case ".xlsx":
		return XLSX
	case ".xls":
		return XLS
	default:
		return Delimited
	}
}

// Supported reports whether a directory scan should pick up the file.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".pdf", ".xlsx", ".xls":
		return true
	}
	return false
}
