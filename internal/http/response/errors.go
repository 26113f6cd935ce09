package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/maturity-assessment-backend/internal/domain/aggregates"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/apierr"
	"github.com/yungbote/maturity-assessment-backend/internal/services"
)

// Classify maps service and aggregate errors onto an HTTP status and code.
// fallback is the code used for anything unrecognized.
func Classify(err error, fallback string) *apierr.Error {
	var ae *apierr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrAttemptNotFound):
		return apierr.NotFound("not_found", err)
	case errors.Is(err, services.ErrInvalidAnswer):
		return apierr.BadRequest("invalid_answer", err)
	case errors.Is(err, services.ErrInvalidIdentity):
		return apierr.BadRequest("invalid_identity", err)
	case errors.Is(err, services.ErrInvalidTransition):
		return apierr.Conflict("invalid_transition", err)
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		return apierr.BadRequest("validation_failed", err)
	case domainagg.CodeNotFound:
		return apierr.NotFound("not_found", err)
	case domainagg.CodeConflict, domainagg.CodePreconditionFailed:
		return apierr.Conflict("conflict", err)
	case domainagg.CodeRetryable:
		return apierr.New(http.StatusServiceUnavailable, "retryable", err)
	}
	return apierr.Internal(fallback, err)
}

// Error writes err using Classify.
func Error(c *gin.Context, fallback string, err error) {
	ae := Classify(err, fallback)
	RespondError(c, ae.Status, ae.Code, ae.Err)
}
