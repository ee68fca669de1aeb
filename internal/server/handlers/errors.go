package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/repository/mongodb"
	"github.com/opencampus/budgetd/internal/service/archive"
	"github.com/opencampus/budgetd/internal/service/budget"
	"github.com/opencampus/budgetd/internal/service/documents"
	"github.com/opencampus/budgetd/internal/service/realignment"
	"github.com/opencampus/budgetd/internal/service/reporting"
	"github.com/opencampus/budgetd/internal/service/workflow"
)

// statusFor maps service errors to HTTP status codes. Unknown errors become
// an internal server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mongodb.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mongodb.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, realignment.ErrInvalidTransition),
		errors.Is(err, archive.ErrAlreadyArchived),
		errors.Is(err, archive.ErrNotArchived),
		errors.Is(err, budget.ErrAllocationInUse):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrNotOwner),
		errors.Is(err, realignment.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrArchivedDocument),
		errors.Is(err, realignment.ErrArchived):
		return http.StatusGone
	case errors.Is(err, workflow.ErrExceedsPREBudget),
		errors.Is(err, workflow.ErrExceedsQuarter),
		errors.Is(err, workflow.ErrExceedsAllocation),
		errors.Is(err, workflow.ErrNoSignedCopy),
		errors.Is(err, workflow.ErrEmptyPRE),
		errors.Is(err, workflow.ErrRejectionReason),
		errors.Is(err, realignment.ErrQuarterShort),
		errors.Is(err, realignment.ErrNoAmount),
		errors.Is(err, realignment.ErrSameLineItem),
		errors.Is(err, realignment.ErrReasonRequired),
		errors.Is(err, realignment.ErrRejectionReason),
		errors.Is(err, budget.ErrInvalidAmount),
		errors.Is(err, budget.ErrOverAllocated),
		errors.Is(err, budget.ErrReversionTooLarge),
		errors.Is(err, budget.ErrFiscalYearRequired),
		errors.Is(err, documents.ErrEmptyFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, documents.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, workflow.ErrSheetsDisabled),
		errors.Is(err, reporting.ErrSheetsDisabled),
		errors.Is(err, documents.ErrStorageDisabled):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// fail writes the error response and logs server-side failures.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
