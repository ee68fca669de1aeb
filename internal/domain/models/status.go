package models

// Status is the workflow state shared by PREs, purchase requests, activity
// designs and realignments.
type Status string

const (
	StatusDraft                Status = "Draft"
	StatusPending              Status = "Pending"
	StatusPartiallyApproved    Status = "Partially Approved"
	StatusAwaitingVerification Status = "Awaiting Admin Verification"
	StatusApproved             Status = "Approved"
	StatusRejected             Status = "Rejected"
)

// transitions encodes the only legal workflow moves. A document leaves Draft
// by submission, walks the two-stage approval, and can be rejected anywhere
// before final approval.
var transitions = map[Status][]Status{
	StatusDraft:                {StatusPending},
	StatusPending:              {StatusPartiallyApproved, StatusRejected},
	StatusPartiallyApproved:    {StatusAwaitingVerification, StatusRejected},
	StatusAwaitingVerification: {StatusApproved, StatusRejected},
}

// CanTransitionTo reports whether moving from s to next is a legal workflow
// step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the document can no longer move.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ReservedStatuses are the states in which a document holds budget without
// having consumed it yet.
var ReservedStatuses = []Status{StatusPending, StatusPartiallyApproved, StatusAwaitingVerification}

// ConsumedStatuses are the states in which budget is officially spent.
var ConsumedStatuses = []Status{StatusApproved}

// DocumentKind identifies which domain entity a generic reference (audit
// entry, notification, supporting document, line item allocation) points at.
type DocumentKind string

const (
	KindBudget          DocumentKind = "BUDGET"
	KindAllocation      DocumentKind = "ALLOCATION"
	KindPRE             DocumentKind = "PRE"
	KindPurchaseRequest DocumentKind = "PR"
	KindActivityDesign  DocumentKind = "AD"
	KindRealignment     DocumentKind = "REALIGNMENT"
)

// Quarter identifies one quarter of a fiscal year.
type Quarter string

const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

// Quarters lists all quarters in order.
var Quarters = []Quarter{Q1, Q2, Q3, Q4}

// ValidQuarter reports whether q is one of Q1..Q4.
func ValidQuarter(q Quarter) bool {
	switch q {
	case Q1, Q2, Q3, Q4:
		return true
	}
	return false
}
