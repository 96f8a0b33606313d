package parser

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/yurifrl/gastos/pkg/models"
)

const maxXLSRows = 100000

func (p *Parser) parseXLSX(data []byte) (*models.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	// Raw values keep dates as serial numbers instead of locale formatted text.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %s: %w", sheets[0], err)
	}

	return p.sheetTable(rows)
}

func (p *Parser) parseXLS(data []byte) (*models.RawTable, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
	if err != nil {
		return nil, fmt.Errorf("error creating workbook: %w", err)
	}
	return p.sheetTable(workbook.ReadAllCells(maxXLSRows))
}

// sheetTable builds the table of a spreadsheet. Both readers hand back date
// cells as serial day numbers when the cell carries no date format.
func (p *Parser) sheetTable(rows [][]string) (*models.RawTable, error) {
	table, err := p.tableFromRows(rows)
	if err != nil {
		return nil, err
	}
	convertSerialDates(table)
	return table, nil
}

func (p *Parser) tableFromRows(rows [][]string) (*models.RawTable, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in sheet")
	}

	start := findHeaderRow(rows)
	if start < 0 {
		p.logger.Debug("no header row found, using first row")
		start = 0
	}

	header := rows[start]
	var body [][]string
	for _, row := range rows[start+1:] {
		if len(row) > len(header) {
			row = row[:len(header)]
		}
		body = append(body, row)
	}
	return normalizeTable(header, body)
}

func findHeaderRow(rows [][]string) int {
	for i, row := range rows {
		if hasTokens(row) {
			return i
		}
	}
	return -1
}

// convertSerialDates rewrites Excel serial day numbers in the date column as
// dd/mm/yyyy so the date normalizer can read them.
func convertSerialDates(table *models.RawTable) {
	col := table.Index(models.ColumnDate)
	if col < 0 {
		return
	}
	for _, row := range table.Rows {
		serial, err := strconv.ParseFloat(row[col], 64)
		if err != nil || serial <= 0 {
			continue
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			continue
		}
		row[col] = t.Format("02/01/2006")
	}
}
