package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiscalYearStart(t *testing.T) {
	cases := []struct {
		label string
		year  int
		ok    bool
	}{
		{"2025-2026", 2025, true},
		{"2025", 2025, true},
		{"2025/2026", 2025, true},
		{"FY 2025", 0, false},
		{"25-26", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		year, ok := fiscalYearStart(tc.label)
		assert.Equal(t, tc.ok, ok, tc.label)
		assert.Equal(t, tc.year, year, tc.label)
	}
}
