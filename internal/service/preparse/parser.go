// Package preparse extracts Program of Receipts and Expenditures line items
// from the standard PRE spreadsheet template, including custom rows added by
// departments.
package preparse

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/opencampus/budgetd/internal/domain/models"
)

// Column indexes within a template row (0-based, column A = 0).
const (
	colA        = 0
	colB        = 1
	colC        = 2
	colQ1       = 4 // E
	colQ2       = 5 // F
	colQ3       = 6 // G
	colQ4       = 7 // H
	colRowTotal = 8 // I
)

// grandTotalRow is where the template puts the overall total (1-indexed).
const grandTotalRow = 177

// fiscalYearRow holds the "FY 2025-2026" label in column A.
const fiscalYearRow = 3

// rowTotalTolerance is the largest acceptable gap between the summed
// quarters and the template's own row total before it counts as a formula
// mismatch.
var rowTotalTolerance = decimal.NewFromFloat(0.01)

type sectionBounds struct {
	startRow         int
	endRow           int
	category         models.PRECategory
	subcategory      string
	hasSubcategories bool
}

// Template sections in sheet order. MOOE and capital outlay carry their own
// subcategory header rows inside the range.
var sections = []sectionBounds{
	{startRow: 9, endRow: 11, category: models.CategoryReceipts, subcategory: "Budget Receipts"},
	{startRow: 13, endRow: 19, category: models.CategoryPersonnel, subcategory: "Personnel Services"},
	{startRow: 20, endRow: 132, category: models.CategoryMOOE, hasSubcategories: true},
	{startRow: 133, endRow: 176, category: models.CategoryCapital, hasSubcategories: true},
}

// Rows whose name matches one of these are headers or totals, not items.
var skipPatterns = []string{
	"TOTAL", "SUB-TOTAL", "RECEIPTS / BUDGET", "BUDGET BY OBJECT",
	"PERSONNEL SERVICES", "MAINTENANCE AND OTHER OPERATING", "MAINTENANCE AND OTHER",
	"CAPITAL OUTLAYS", "CURRENT OPERATING",
}

// standardItems are the names printed on the blank template. Anything else
// is a custom row typed in by the department.
var standardItems = map[string]struct{}{
	"GASS - TUITION FEE":                        {},
	"Basic Salary":                              {},
	"Honoraria":                                 {},
	"Overtime Pay":                              {},
	"Travelling expenses-local":                 {},
	"Travelling Expenses-foreign":               {},
	"Training Expenses":                         {},
	"Office Supplies Expenses":                  {},
	"Accountable Form Expenses":                 {},
	"Agricultural and Marine Supplies expenses": {},
	"Drugs and Medicines":                       {},
}

// ParsedItem is one extracted budget line.
type ParsedItem struct {
	RowNumber   int
	ItemName    string
	Category    models.PRECategory
	Subcategory string
	Q1          decimal.Decimal
	Q2          decimal.Decimal
	Q3          decimal.Decimal
	Q4          decimal.Decimal
	IsCustom    bool
}

// Total sums the item's quarterly amounts.
func (p *ParsedItem) Total() decimal.Decimal {
	return p.Q1.Add(p.Q2).Add(p.Q3).Add(p.Q4)
}

// RowMismatch records a row whose template total disagrees with the summed
// quarters. The summed value wins; the mismatch is reported as a warning.
type RowMismatch struct {
	Row        int
	Item       string
	Calculated decimal.Decimal
	SheetTotal decimal.Decimal
}

// Result is the outcome of parsing one PRE workbook grid.
type Result struct {
	Items       []ParsedItem
	GrandTotal  decimal.Decimal
	FiscalYear  string
	CustomItems int
	Warnings    []string
	Mismatches  []RowMismatch
}

// Parser walks a rectangular cell grid read from the PRE template. Rows are
// 1-indexed to match spreadsheet coordinates.
type Parser struct {
	grid [][]interface{}
}

// NewParser wraps a grid as returned by the Sheets range A1:I177.
func NewParser(grid [][]interface{}) *Parser {
	return &Parser{grid: grid}
}

// Parse validates the template shape and extracts every line item.
func (p *Parser) Parse() (*Result, error) {
	if len(p.grid) < grandTotalRow {
		return nil, fmt.Errorf("template too short: got %d rows, want at least %d", len(p.grid), grandTotalRow)
	}

	res := &Result{
		FiscalYear: p.fiscalYear(),
		GrandTotal: decimal.Zero,
	}

	// A renamed or shifted grand-total label is not fatal: the total is
	// recomputed from the line items anyway.
	if label := p.cellString(grandTotalRow, colA); !strings.Contains(strings.ToUpper(label), "TOTAL") {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("grand total label expected at row %d, found %q", grandTotalRow, label))
	}

	for _, section := range sections {
		for row := section.startRow; row <= section.endRow; row++ {
			name := p.itemName(row)
			if name == "" || isSkipRow(name) {
				continue
			}

			q1 := p.parseCell(row, colQ1, res)
			q2 := p.parseCell(row, colQ2, res)
			q3 := p.parseCell(row, colQ3, res)
			q4 := p.parseCell(row, colQ4, res)

			if q1.IsZero() && q2.IsZero() && q3.IsZero() && q4.IsZero() {
				continue
			}

			calculated := q1.Add(q2).Add(q3).Add(q4)
			sheetTotal := p.parseCell(row, colRowTotal, res)
			if calculated.Sub(sheetTotal).Abs().GreaterThan(rowTotalTolerance) {
				res.Mismatches = append(res.Mismatches, RowMismatch{
					Row: row, Item: name, Calculated: calculated, SheetTotal: sheetTotal,
				})
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("row %d (%s): row total mismatch, using summed quarters", row, name))
			}

			_, isStandard := standardItems[name]
			item := ParsedItem{
				RowNumber:   row,
				ItemName:    name,
				Category:    section.category,
				Subcategory: p.subcategory(row, section),
				Q1:          q1,
				Q2:          q2,
				Q3:          q3,
				Q4:          q4,
				IsCustom:    !isStandard,
			}
			if item.IsCustom {
				res.CustomItems++
			}

			res.Items = append(res.Items, item)
			res.GrandTotal = res.GrandTotal.Add(calculated)
		}
	}

	return res, nil
}

// itemName checks columns A, B and C for the row's label.
func (p *Parser) itemName(row int) string {
	for _, col := range []int{colA, colB, colC} {
		if s := p.cellString(row, col); s != "" {
			return s
		}
	}
	return ""
}

// subcategory resolves the subcategory of an item row. Sections without
// internal headers use a fixed label; for the rest, scan backwards for the
// nearest header row (a named row with no Q1 value).
func (p *Parser) subcategory(row int, section sectionBounds) string {
	if !section.hasSubcategories {
		return section.subcategory
	}
	for check := row - 1; check >= section.startRow; check-- {
		name := p.cellString(check, colA)
		if name == "" {
			continue
		}
		if p.cellString(check, colQ1) == "" && !isSkipRow(name) {
			return name
		}
	}
	return "Uncategorized"
}

// fiscalYear reads the "FY 2025-2026" label from the template header.
func (p *Parser) fiscalYear() string {
	return strings.TrimSpace(strings.ReplaceAll(p.cellString(fiscalYearRow, colA), "FY", ""))
}

// parseCell interprets one amount cell. Placeholder markers and blanks mean
// zero; anything unparseable is warned about and treated as zero.
func (p *Parser) parseCell(row, col int, res *Result) decimal.Decimal {
	raw := p.cellString(row, col)
	if raw == "" {
		return decimal.Zero
	}
	switch strings.ToUpper(raw) {
	case "X", "XX", "XXX", "XXXX", "-":
		return decimal.Zero
	}
	cleaned := strings.ReplaceAll(raw, ",", "")
	val, err := decimal.NewFromString(cleaned)
	if err != nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("row %d: invalid cell value %q treated as 0", row, raw))
		return decimal.Zero
	}
	return val
}

// cellString fetches a trimmed cell value at 1-indexed row, 0-indexed col.
func (p *Parser) cellString(row, col int) string {
	if row < 1 || row > len(p.grid) {
		return ""
	}
	cells := p.grid[row-1]
	if col >= len(cells) || cells[col] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(cells[col]))
}

func isSkipRow(name string) bool {
	upper := strings.ToUpper(name)
	for _, pattern := range skipPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
