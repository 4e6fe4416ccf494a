package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/reisewerk/tariffkit/internal/domain"
)

// LoadWorkbook reads the rate workbook and returns one table per
// product sheet. Sheets not named after a catalog product are ignored;
// a product without a sheet is simply absent from the result and later
// resolves every lookup to no-match.
func LoadWorkbook(path string) (domain.RateTableSet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	set := make(domain.RateTableSet)

	for _, spec := range domain.Products() {
		sheet := string(spec.Key)
		rows, err := f.GetRows(sheet)
		if err != nil {
			// Sheet missing from this workbook
			continue
		}

		table, err := parseSheet(spec.Key, rows)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		set[spec.Key] = table
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("workbook %s contains no product sheets", path)
	}

	return set, nil
}

// parseSheet converts one sheet's cell grid into a rate table. The
// first row carries the column headers; unknown headers are skipped.
func parseSheet(product domain.ProductKey, rows [][]string) (*domain.RateTable, error) {
	if len(rows) == 0 {
		return &domain.RateTable{Product: product}, nil
	}

	header := rows[0]
	columns := make([]domain.Column, 0, len(header))
	colIndex := make(map[int]domain.Column, len(header))

	for i, h := range header {
		col, ok := headerColumn(h)
		if !ok {
			continue
		}
		columns = append(columns, col)
		colIndex[i] = col
	}

	table := &domain.RateTable{
		Product: product,
		Columns: columns,
	}

	for rowNum, cells := range rows[1:] {
		row := domain.Row{}
		empty := true

		for i, cell := range cells {
			col, ok := colIndex[i]
			if !ok {
				continue
			}
			value := strings.TrimSpace(cell)
			if value == "" {
				continue
			}
			empty = false

			switch col {
			case domain.ColPriceCeiling, domain.ColRate, domain.ColDailyRate:
				num, err := parseNumber(value)
				if err != nil {
					return nil, fmt.Errorf("row %d: column %q: %w", rowNum+2, col, err)
				}
				switch col {
				case domain.ColPriceCeiling:
					row.PriceCeiling = &num
				case domain.ColRate:
					row.Rate = &num
				case domain.ColDailyRate:
					row.DailyRate = &num
				}
			case domain.ColAgeBracket:
				row.AgeBracket = &value
			case domain.ColHouseholdType:
				row.HouseholdType = &value
			case domain.ColZone:
				row.Zone = &value
			case domain.ColTariffCode:
				row.TariffCode = &value
			}
		}

		if !empty {
			table.Rows = append(table.Rows, row)
		}
	}

	return table, nil
}

// headerColumn maps a workbook header cell to its canonical column.
// Matching is trimmed and case-insensitive.
func headerColumn(h string) (domain.Column, bool) {
	normalized := strings.ToLower(strings.TrimSpace(h))
	for _, col := range []domain.Column{
		domain.ColPriceCeiling,
		domain.ColAgeBracket,
		domain.ColHouseholdType,
		domain.ColZone,
		domain.ColRate,
		domain.ColDailyRate,
		domain.ColTariffCode,
	} {
		if normalized == strings.ToLower(string(col)) {
			return col, true
		}
	}
	return "", false
}

// parseNumber accepts both point and comma decimal separators, since
// rate workbooks arrive from German-locale spreadsheets.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}
