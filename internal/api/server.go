// Package api exposes the ledger, lifecycle, integrity and report operations
// over HTTP. Callers authenticate with an HS256 bearer token carrying
// user_id and role claims.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripledger/internal/auth"
	"tripledger/internal/report"
	"tripledger/pkg/services"
)

// Deps are the services the HTTP boundary dispatches to.
type Deps struct {
	Ledger    services.LedgerService
	Lifecycle services.LifecycleService
	Integrity services.IntegrityService
	Reports   *report.Builder
	Verifier  *auth.TokenVerifier

	// RequestTimeout bounds each request's context. Zero disables it.
	RequestTimeout time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
}

// NewServer creates the HTTP boundary.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(), timeout(s.deps.RequestTimeout))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", authenticate(s.deps.Verifier))

	api.POST("/trips/:trip_id/admin", s.createRecord)
	api.GET("/trips/:trip_id/admin", s.getSheet)
	api.PUT("/trip-admin/:admin_id", s.updateRecord)
	api.POST("/trip-admin/:admin_id/payments", s.addInstallment)
	api.GET("/trip-admin/:admin_id/payments", s.listInstallments)
	api.DELETE("/payments/:payment_id", s.removeInstallment)

	api.PUT("/trips/:trip_id/status", s.changeStatus)
	api.DELETE("/trips/:trip_id", s.deleteTrip)

	api.POST("/admin/cleanup-orphaned-data", s.sweep)
	api.POST("/admin/reconcile", s.repair)

	api.GET("/analytics/agent-commissions", s.commissionAnalytics)
	api.GET("/reports/financial", s.financialReport)
	api.GET("/reports/financial/export", s.exportFinancialReport)

	return r
}
