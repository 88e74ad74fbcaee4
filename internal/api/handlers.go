package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tripledger/internal/auth"
	"tripledger/internal/integrity"
	"tripledger/internal/ledger"
	"tripledger/internal/report"
	"tripledger/pkg/models"
	"tripledger/pkg/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}

func (s *Server) createRecord(c *gin.Context) {
	var in services.RecordInput
	if !bind(c, &in) {
		return
	}
	rec, err := s.deps.Ledger.CreateRecord(c.Request.Context(), callerOf(c), c.Param("trip_id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// getSheet answers null for a trip without a financial record.
func (s *Server) getSheet(c *gin.Context) {
	sheet, err := s.deps.Ledger.GetSheet(c.Request.Context(), callerOf(c), c.Param("trip_id"))
	if errors.Is(err, ledger.ErrRecordNotFound) {
		c.JSON(http.StatusOK, nil)
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

func (s *Server) updateRecord(c *gin.Context) {
	var patch services.RecordPatch
	if !bind(c, &patch) {
		return
	}
	rec, err := s.deps.Ledger.UpdateRecord(c.Request.Context(), callerOf(c), c.Param("admin_id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) addInstallment(c *gin.Context) {
	var in services.InstallmentInput
	if !bind(c, &in) {
		return
	}
	inst, err := s.deps.Ledger.AddInstallment(c.Request.Context(), callerOf(c), c.Param("admin_id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *Server) listInstallments(c *gin.Context) {
	insts, err := s.deps.Ledger.ListInstallments(c.Request.Context(), callerOf(c), c.Param("admin_id"))
	if err != nil {
		fail(c, err)
		return
	}
	if insts == nil {
		insts = []*models.PaymentInstallment{}
	}
	c.JSON(http.StatusOK, insts)
}

func (s *Server) removeInstallment(c *gin.Context) {
	inst, err := s.deps.Ledger.RemoveInstallment(c.Request.Context(), callerOf(c), c.Param("payment_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Payment installment deleted successfully",
		"installment_id": inst.ID,
		"trip_admin_id":  inst.FinancialRecordID,
	})
}

type statusRequest struct {
	Status models.TripStatus `json:"status" binding:"required"`
}

func (s *Server) changeStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	change, err := s.deps.Lifecycle.ChangeStatus(c.Request.Context(), callerOf(c), c.Param("trip_id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, change)
}

// deleteTrip answers 200 with the report even when some steps failed; the
// failures are listed under "errors".
func (s *Server) deleteTrip(c *gin.Context) {
	rep, err := s.deps.Integrity.DeleteTrip(c.Request.Context(), callerOf(c), c.Param("trip_id"))

	var cascadeErr *integrity.CascadeError
	switch {
	case errors.As(err, &cascadeErr):
		msgs := make([]string, len(cascadeErr.Steps))
		for i, step := range cascadeErr.Steps {
			msgs[i] = step.Error()
		}
		requestLogger(c).Warn().Err(err).Msg("Cascade delete incomplete")
		c.JSON(http.StatusOK, gin.H{
			"message":        "Trip deletion incomplete, run it again to finish",
			"deleted_counts": rep,
			"errors":         msgs,
		})
	case err != nil:
		fail(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{
			"message":        "Trip and all related data deleted successfully",
			"deleted_counts": rep,
		})
	}
}

func (s *Server) sweep(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.Query("dry_run"))
	rep, err := s.deps.Integrity.Sweep(c.Request.Context(), callerOf(c), services.SweepOptions{DryRun: dryRun})
	if err != nil {
		fail(c, err)
		return
	}
	msg := "Orphaned data cleanup completed"
	if dryRun {
		msg = "Orphaned data cleanup dry run completed, nothing deleted"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         msg,
		"total_deleted":   rep.TotalDeleted,
		"details":         rep.Details,
		"remaining_trips": rep.RemainingTrips,
		"dry_run":         rep.DryRun,
	})
}

func (s *Server) repair(c *gin.Context) {
	rep, err := s.deps.Integrity.Repair(c.Request.Context(), callerOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func filterFrom(c *gin.Context) (report.Filter, error) {
	var f report.Filter
	parse := func(name string) (int, error) {
		v := c.Query(name)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
		}
		return n, nil
	}
	var err error
	if f.Year, err = parse("year"); err != nil {
		return f, err
	}
	if f.Month, err = parse("month"); err != nil {
		return f, err
	}
	f.AgentID = c.Query("agent_id")
	return f, nil
}

func (s *Server) commissionAnalytics(c *gin.Context) {
	f, err := filterFrom(c)
	if err != nil {
		fail(c, err)
		return
	}
	sum, err := s.deps.Reports.CommissionAnalytics(c.Request.Context(), callerOf(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) financialReport(c *gin.Context) {
	f, err := filterFrom(c)
	if err != nil {
		fail(c, err)
		return
	}
	rep, err := s.deps.Reports.Financial(c.Request.Context(), callerOf(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) exportFinancialReport(c *gin.Context) {
	caller := callerOf(c)
	if err := auth.RequireAdmin(caller); err != nil {
		fail(c, err)
		return
	}
	f, err := filterFrom(c)
	if err != nil {
		fail(c, err)
		return
	}
	rep, err := s.deps.Reports.Financial(c.Request.Context(), caller, f)
	if err != nil {
		fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rep); err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+report.ExportFilename(f))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
