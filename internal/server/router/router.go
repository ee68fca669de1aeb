package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/server/handlers"
	"github.com/opencampus/budgetd/pkg/metrics"
)

// Handlers bundles the HTTP handler adapters the router wires up.
type Handlers struct {
	Budgets       *handlers.BudgetHandler
	PREs          *handlers.PREHandler
	Requests      *handlers.RequestHandler
	Realignments  *handlers.RealignmentHandler
	Archives      *handlers.ArchiveHandler
	Reports       *handlers.ReportHandler
	Notifications *handlers.NotificationHandler
	Documents     *handlers.DocumentHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(metricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1", handlers.Identity())

	// Reading budgets and allocations is open to every authenticated user.
	api.GET("/budgets", h.Budgets.List)
	api.GET("/budgets/:id", h.Budgets.Get)
	api.GET("/budgets/:id/allocations", h.Budgets.ListAllocations)
	api.GET("/allocations/mine", h.Budgets.MyAllocations)
	api.GET("/allocations/:id", h.Budgets.GetAllocation)
	api.GET("/allocations/:id/transactions", h.Budgets.Transactions)

	// PRE planning documents.
	api.POST("/pres", h.PREs.Create)
	api.POST("/pres/ingest", h.PREs.IngestSheet)
	api.GET("/pres/:id", h.PREs.Get)
	api.GET("/allocations/:id/pres", h.PREs.ListByAllocation)
	api.POST("/pres/:id/submit", h.PREs.Submit)
	api.POST("/pres/:id/signed", h.PREs.MarkSignedUploaded)
	api.GET("/line-items/:id/quarters", h.PREs.QuarterBreakdown)
	api.GET("/line-items/:id/realignable", h.Realignments.Availability)

	// Purchase requests.
	api.POST("/purchase-requests", h.Requests.CreatePR)
	api.GET("/purchase-requests", h.Requests.ListPRs)
	api.GET("/purchase-requests/:id", h.Requests.GetPR)
	api.PUT("/purchase-requests/:id", h.Requests.UpdatePR)
	api.POST("/purchase-requests/:id/submit", h.Requests.SubmitPR)
	api.POST("/purchase-requests/:id/signed", h.Requests.MarkPRSignedUploaded)

	// Activity designs.
	api.POST("/activity-designs", h.Requests.CreateAD)
	api.GET("/activity-designs", h.Requests.ListADs)
	api.GET("/activity-designs/:id", h.Requests.GetAD)
	api.PUT("/activity-designs/:id", h.Requests.UpdateAD)
	api.POST("/activity-designs/:id/submit", h.Requests.SubmitAD)
	api.POST("/activity-designs/:id/signed", h.Requests.MarkADSignedUploaded)

	// Realignments.
	api.POST("/realignments", h.Realignments.Create)
	api.GET("/realignments", h.Realignments.List)
	api.GET("/realignments/:id", h.Realignments.Get)
	api.POST("/realignments/:id/submit", h.Realignments.Submit)
	api.POST("/realignments/:id/signed", h.Realignments.MarkSignedUploaded)

	// Inbox, documents, department dashboard.
	api.GET("/notifications", h.Notifications.List)
	api.GET("/notifications/unread-count", h.Notifications.UnreadCount)
	api.POST("/notifications/:id/read", h.Notifications.MarkRead)
	api.POST("/notifications/read-all", h.Notifications.MarkAllRead)
	api.POST("/documents", h.Documents.Upload)
	api.GET("/documents/:id", h.Documents.Get)
	api.GET("/entities/:kind/:id/documents", h.Documents.ListForEntity)
	api.GET("/dashboard", h.Reports.EndUserDashboard)

	// Budget officer operations.
	admin := api.Group("", handlers.RequireAdmin())
	admin.POST("/budgets", h.Budgets.Create)
	admin.PATCH("/budgets/:id", h.Budgets.Update)
	admin.POST("/budgets/:id/supplemental", h.Budgets.AddSupplemental)
	admin.POST("/budgets/:id/revert", h.Budgets.Revert)
	admin.POST("/allocations", h.Budgets.CreateAllocation)
	admin.POST("/allocations/:id/adjust", h.Budgets.AdjustAllocation)
	admin.DELETE("/allocations/:id", h.Budgets.DeleteAllocation)

	admin.GET("/pres/pending", h.PREs.ListPending)
	admin.POST("/pres/:id/partial-approve", h.PREs.PartialApprove)
	admin.POST("/pres/:id/approve", h.PREs.FinalApprove)
	admin.POST("/pres/:id/reject", h.PREs.Reject)

	admin.POST("/purchase-requests/:id/partial-approve", h.Requests.PartialApprovePR)
	admin.POST("/purchase-requests/:id/approve", h.Requests.FinalApprovePR)
	admin.POST("/purchase-requests/:id/reject", h.Requests.RejectPR)

	admin.POST("/activity-designs/:id/partial-approve", h.Requests.PartialApproveAD)
	admin.POST("/activity-designs/:id/approve", h.Requests.FinalApproveAD)
	admin.POST("/activity-designs/:id/reject", h.Requests.RejectAD)

	admin.POST("/realignments/:id/partial-approve", h.Realignments.PartialApprove)
	admin.POST("/realignments/:id/approve", h.Realignments.FinalApprove)
	admin.POST("/realignments/:id/reject", h.Realignments.Reject)

	admin.POST("/budgets/:id/archive", h.Archives.ArchiveBudget)
	admin.POST("/budgets/:id/restore", h.Archives.RestoreBudget)
	admin.POST("/allocations/:id/archive", h.Archives.ArchiveAllocation)
	admin.POST("/allocations/:id/restore", h.Archives.RestoreAllocation)
	admin.GET("/archive/budgets", h.Archives.ListArchivedBudgets)
	admin.POST("/archive/sweep", h.Archives.RunSweep)

	admin.GET("/admin/dashboard", h.Reports.AdminDashboard)
	admin.GET("/admin/audit", h.Reports.AuditTrail)
	admin.POST("/reports/savings", h.Reports.CreateSavingsSnapshot)
	admin.GET("/reports/savings/:fiscalYear", h.Reports.SavingsReport)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(
			c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
