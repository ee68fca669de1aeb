package preparse

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/budgetd/internal/domain/models"
)

// templateGrid builds an empty 177-row grid with the fixed template labels
// in place, which tests then fill in row by row.
func templateGrid() [][]interface{} {
	grid := make([][]interface{}, grandTotalRow)
	for i := range grid {
		grid[i] = make([]interface{}, 9)
	}
	grid[fiscalYearRow-1][colA] = "FY 2025-2026"
	grid[grandTotalRow-1][colA] = "GRAND TOTAL"
	return grid
}

func setRow(grid [][]interface{}, row int, name string, q1, q2, q3, q4, total interface{}) {
	grid[row-1][colA] = name
	grid[row-1][colQ1] = q1
	grid[row-1][colQ2] = q2
	grid[row-1][colQ3] = q3
	grid[row-1][colQ4] = q4
	grid[row-1][colRowTotal] = total
}

func TestParser_Parse(t *testing.T) {
	grid := templateGrid()
	setRow(grid, 9, "GASS - TUITION FEE", "100000", "100000", "50000", "50000", "300000")
	setRow(grid, 13, "Basic Salary", "25000", "25000", "25000", "25000", "100000")
	// MOOE subcategory header: named row with no quarter values.
	grid[21][colA] = "Travelling Expenses"
	setRow(grid, 23, "Travelling expenses-local", "5000", "0", "5000", "0", "10000")
	setRow(grid, 24, "Team Building Retreat", "0", "8000", "0", "0", "8000")

	res, err := NewParser(grid).Parse()
	require.NoError(t, err)

	assert.Equal(t, "2025-2026", res.FiscalYear)
	require.Len(t, res.Items, 4)
	assert.True(t, res.GrandTotal.Equal(dec("418000")), "got %s", res.GrandTotal)
	assert.Empty(t, res.Mismatches)

	receipts := res.Items[0]
	assert.Equal(t, models.CategoryReceipts, receipts.Category)
	assert.Equal(t, "Budget Receipts", receipts.Subcategory)
	assert.False(t, receipts.IsCustom)

	travel := res.Items[2]
	assert.Equal(t, models.CategoryMOOE, travel.Category)
	assert.Equal(t, "Travelling Expenses", travel.Subcategory)
	assert.False(t, travel.IsCustom)

	custom := res.Items[3]
	assert.Equal(t, "Team Building Retreat", custom.ItemName)
	assert.True(t, custom.IsCustom)
	assert.Equal(t, 1, res.CustomItems)
}

func TestParser_Parse_PlaceholdersAndBlanks(t *testing.T) {
	grid := templateGrid()
	setRow(grid, 9, "GASS - TUITION FEE", "XXX", "x", "-", "1000", "1000")
	// All-zero rows are dropped entirely.
	setRow(grid, 10, "Unused Row", "XXX", "", "-", "X", "")

	res, err := NewParser(grid).Parse()
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].Total().Equal(dec("1000")))
}

func TestParser_Parse_RowTotalMismatch(t *testing.T) {
	grid := templateGrid()
	// Stale formula: the sheet says 900 but the quarters sum to 1000.
	setRow(grid, 13, "Honoraria", "250", "250", "250", "250", "900")

	res, err := NewParser(grid).Parse()
	require.NoError(t, err)

	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, 13, res.Mismatches[0].Row)
	assert.True(t, res.Mismatches[0].Calculated.Equal(dec("1000")))
	assert.True(t, res.Mismatches[0].SheetTotal.Equal(dec("900")))
	// The summed quarters win in the grand total.
	assert.True(t, res.GrandTotal.Equal(dec("1000")))
	assert.NotEmpty(t, res.Warnings)
}

func TestParser_Parse_SkipsHeaderRows(t *testing.T) {
	grid := templateGrid()
	setRow(grid, 20, "MAINTENANCE AND OTHER OPERATING EXPENSES", "1", "1", "1", "1", "4")
	setRow(grid, 21, "Sub-total", "2", "2", "2", "2", "8")
	setRow(grid, 25, "Office Supplies Expenses", "100", "0", "0", "0", "100")

	res, err := NewParser(grid).Parse()
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "Office Supplies Expenses", res.Items[0].ItemName)
}

func TestParser_Parse_MissingGrandTotalWarns(t *testing.T) {
	grid := templateGrid()
	grid[grandTotalRow-1][colA] = "Notes"
	setRow(grid, 13, "Honoraria", "250", "250", "250", "250", "1000")

	res, err := NewParser(grid).Parse()
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.True(t, res.GrandTotal.Equal(dec("1000")))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "grand total label")
}

func TestParser_Parse_ShortGrid(t *testing.T) {
	_, err := NewParser(make([][]interface{}, 20)).Parse()
	assert.Error(t, err)
}

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}
