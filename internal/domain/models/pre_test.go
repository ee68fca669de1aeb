package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPRELineItem_Total(t *testing.T) {
	li := &PRELineItem{
		Q1Amount: d("1000"),
		Q2Amount: d("2500.25"),
		Q3Amount: d("0"),
		Q4Amount: d("499.75"),
	}
	assert.True(t, li.Total().Equal(d("4000")))
}

func TestPRELineItem_QuarterAmount(t *testing.T) {
	li := &PRELineItem{Q1Amount: d("10"), Q2Amount: d("20"), Q3Amount: d("30"), Q4Amount: d("40")}

	tests := []struct {
		quarter Quarter
		want    string
	}{
		{Q1, "10"},
		{Q2, "20"},
		{Q3, "30"},
		{Q4, "40"},
	}
	for _, tt := range tests {
		t.Run(string(tt.quarter), func(t *testing.T) {
			assert.True(t, li.QuarterAmount(tt.quarter).Equal(d(tt.want)))
		})
	}

	assert.True(t, li.QuarterAmount(Quarter("Q9")).IsZero())
}

func TestPRELineItem_SetQuarterAmount(t *testing.T) {
	li := &PRELineItem{}
	for i, q := range Quarters {
		li.SetQuarterAmount(q, decimal.NewFromInt(int64(i+1)*100))
	}
	assert.True(t, li.Q1Amount.Equal(d("100")))
	assert.True(t, li.Q2Amount.Equal(d("200")))
	assert.True(t, li.Q3Amount.Equal(d("300")))
	assert.True(t, li.Q4Amount.Equal(d("400")))
	assert.True(t, li.Total().Equal(d("1000")))
}

func TestPREReceipt_Total(t *testing.T) {
	r := &PREReceipt{Q1Amount: d("5.50"), Q2Amount: d("4.50"), Q3Amount: d("0"), Q4Amount: d("90")}
	assert.True(t, r.Total().Equal(d("100")))
}
