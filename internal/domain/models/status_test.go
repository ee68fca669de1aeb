package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"draft to pending", StatusDraft, StatusPending, true},
		{"pending to partial", StatusPending, StatusPartiallyApproved, true},
		{"pending to rejected", StatusPending, StatusRejected, true},
		{"partial to awaiting", StatusPartiallyApproved, StatusAwaitingVerification, true},
		{"partial to rejected", StatusPartiallyApproved, StatusRejected, true},
		{"awaiting to approved", StatusAwaitingVerification, StatusApproved, true},
		{"awaiting to rejected", StatusAwaitingVerification, StatusRejected, true},
		{"draft straight to approved", StatusDraft, StatusApproved, false},
		{"pending straight to approved", StatusPending, StatusApproved, false},
		{"approved is terminal", StatusApproved, StatusPending, false},
		{"rejected is terminal", StatusRejected, StatusPending, false},
		{"no self transition", StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusDraft.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusPartiallyApproved.Terminal())
	assert.False(t, StatusAwaitingVerification.Terminal())
}

func TestValidQuarter(t *testing.T) {
	for _, q := range Quarters {
		assert.True(t, ValidQuarter(q))
	}
	assert.False(t, ValidQuarter(Quarter("Q5")))
	assert.False(t, ValidQuarter(Quarter("")))
	assert.False(t, ValidQuarter(Quarter("q1")))
}
