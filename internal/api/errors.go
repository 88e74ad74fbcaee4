package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripledger/internal/auth"
	"tripledger/internal/integrity"
	"tripledger/internal/ledger"
	"tripledger/internal/report"
)

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrTripNotFound),
		errors.Is(err, ledger.ErrRecordNotFound),
		errors.Is(err, ledger.ErrInstallmentNotFound),
		errors.Is(err, integrity.ErrTripNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateRecord):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, ledger.ErrInvalidPaymentType),
		errors.Is(err, ledger.ErrTripIncomplete),
		errors.Is(err, report.ErrInvalidFilter),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}. Internal errors are logged and their
// text is not exposed.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		requestLogger(c).Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
