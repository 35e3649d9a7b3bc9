package upload

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parsedRow is one spreadsheet data row after header mapping.
type parsedRow struct {
	Symbol   string
	Name     string
	ISIN     string
	Type     string
	Sector   string
	Quantity float64
	AvgPrice float64
	LTP      float64
	Exchange string
	AMC      string
	Category string
}

// parseResult carries the valid rows plus bookkeeping for the partial-import
// rules: TotalRows counts data rows seen, and SheetInvested holds the
// sheet's own invested total when a totals row was present.
type parseResult struct {
	Rows          []parsedRow
	TotalRows     int
	Warnings      []string
	SheetInvested float64
}

func parseFile(ext string, data []byte) (*parseResult, error) {
	var records [][]string
	var err error
	switch ext {
	case ".csv":
		records, err = readCSV(data)
	case ".xlsx", ".xls":
		records, err = readWorkbook(data)
	default:
		return nil, fmt.Errorf("unsupported file type '%s'", ext)
	}
	if err != nil {
		return nil, err
	}
	return mapRecords(records)
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // ragged rows are handled during mapping
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	// Only the first sheet is imported.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s': %w", sheets[0], err)
	}
	return rows, nil
}

// headerAliases maps recognized column headings onto canonical field names.
var headerAliases = map[string]string{
	"symbol":         "symbol",
	"ticker":         "symbol",
	"tradingsymbol":  "symbol",
	"scheme":         "name",
	"name":           "name",
	"instrument":     "name",
	"isin":           "isin",
	"type":           "type",
	"asset type":     "type",
	"asset_type":     "type",
	"sector":         "sector",
	"industry":       "sector",
	"quantity":       "quantity",
	"qty":            "quantity",
	"units":          "quantity",
	"avg price":      "avg_price",
	"avg_price":      "avg_price",
	"average price":  "avg_price",
	"avg cost":       "avg_price",
	"buy price":      "avg_price",
	"ltp":            "ltp",
	"last price":     "ltp",
	"current price":  "ltp",
	"cmp":            "ltp",
	"exchange":       "exchange",
	"amc":            "amc",
	"fund house":     "amc",
	"category":       "category",
}

// mapRecords locates the header row, maps the remaining rows through it, and
// skips malformed rows with warnings. A trailing totals row feeds the
// reconciliation check instead of becoming a holding.
func mapRecords(records [][]string) (*parseResult, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("file has no rows")
	}

	columns, headerIdx := findHeader(records)
	if columns == nil {
		return nil, fmt.Errorf("no header row with a symbol or name column found")
	}

	result := &parseResult{}
	for i := headerIdx + 1; i < len(records); i++ {
		record := records[i]
		if blankRow(record) {
			continue
		}
		if invested, ok := totalsRow(record, columns); ok {
			result.SheetInvested = invested
			continue
		}
		result.TotalRows++

		row, err := mapRow(record, columns)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d skipped: %v", i+1, err))
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// findHeader scans the leading rows for one that names a symbol or name
// column, returning the column mapping and row index.
func findHeader(records [][]string) (map[string]int, int) {
	limit := len(records)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		columns := make(map[string]int)
		for col, cell := range records[i] {
			key := strings.ToLower(strings.TrimSpace(cell))
			if field, ok := headerAliases[key]; ok {
				if _, exists := columns[field]; !exists {
					columns[field] = col
				}
			}
		}
		if _, ok := columns["symbol"]; ok {
			return columns, i
		}
		if _, ok := columns["name"]; ok {
			return columns, i
		}
	}
	return nil, 0
}

func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// totalsRow recognizes a summary row ("Total", "Grand Total") and extracts
// its invested amount from the avg_price column area when parseable.
func totalsRow(record []string, columns map[string]int) (float64, bool) {
	if len(record) == 0 {
		return 0, false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	if first != "total" && first != "grand total" && first != "totals" {
		return 0, false
	}
	// The invested total usually sits in or after the avg price column.
	start := 1
	if col, ok := columns["avg_price"]; ok {
		start = col
	}
	for col := start; col < len(record); col++ {
		if v, err := parseNumber(record[col]); err == nil && v > 0 {
			return v, true
		}
	}
	return 0, true
}

func mapRow(record []string, columns map[string]int) (parsedRow, error) {
	cell := func(field string) string {
		col, ok := columns[field]
		if !ok || col >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[col])
	}

	row := parsedRow{
		Symbol:   cell("symbol"),
		Name:     cell("name"),
		ISIN:     cell("isin"),
		Type:     cell("type"),
		Sector:   cell("sector"),
		Exchange: cell("exchange"),
		AMC:      cell("amc"),
		Category: cell("category"),
	}
	if row.Symbol == "" {
		row.Symbol = row.Name
	}
	if row.Symbol == "" {
		return parsedRow{}, fmt.Errorf("missing symbol")
	}

	qty, err := parseNumber(cell("quantity"))
	if err != nil {
		return parsedRow{}, fmt.Errorf("invalid quantity '%s'", cell("quantity"))
	}
	if qty <= 0 {
		return parsedRow{}, fmt.Errorf("quantity must be positive")
	}
	row.Quantity = qty

	avgPrice, err := parseNumber(cell("avg_price"))
	if err != nil || avgPrice < 0 {
		return parsedRow{}, fmt.Errorf("invalid average price '%s'", cell("avg_price"))
	}
	row.AvgPrice = avgPrice

	if ltp, err := parseNumber(cell("ltp")); err == nil && ltp > 0 {
		row.LTP = ltp
	}

	return row, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimPrefix(s, "₹")
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.ParseFloat(s, 64)
}
