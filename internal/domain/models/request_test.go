package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPurchaseRequest_RecalculateTotal(t *testing.T) {
	pr := &PurchaseRequest{
		TotalAmount: d("999"), // stale
		Items: []PurchaseRequestItem{
			{Quantity: 3, UnitCost: d("150.50")},
			{Quantity: 10, UnitCost: d("42")},
		},
	}
	pr.RecalculateTotal()

	assert.True(t, pr.Items[0].TotalCost.Equal(d("451.50")))
	assert.True(t, pr.Items[1].TotalCost.Equal(d("420")))
	assert.True(t, pr.TotalAmount.Equal(d("871.50")), "got %s", pr.TotalAmount)
}

func TestPurchaseRequest_RecalculateTotal_NoItems(t *testing.T) {
	// Amount-only PRs keep their declared total.
	pr := &PurchaseRequest{TotalAmount: d("5000")}
	pr.RecalculateTotal()
	assert.True(t, pr.TotalAmount.Equal(d("5000")))
}

func TestRealignment_TotalAndSelectedQuarters(t *testing.T) {
	r := &Realignment{
		Q1Amount: d("1000"),
		Q3Amount: d("250"),
	}
	assert.True(t, r.TotalAmount().Equal(d("1250")))

	selected := r.SelectedQuarters()
	assert.Len(t, selected, 2)
	assert.Equal(t, Q1, selected[0].Quarter)
	assert.True(t, selected[0].Amount.Equal(d("1000")))
	assert.Equal(t, Q3, selected[1].Quarter)
	assert.True(t, selected[1].Amount.Equal(d("250")))
}

func TestRealignment_SelectedQuarters_Empty(t *testing.T) {
	r := &Realignment{}
	assert.Empty(t, r.SelectedQuarters())
}
