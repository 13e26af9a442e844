package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poil524/final-project-sub000/internal/apperr"
)

// FromError maps a domain error onto the HTTP status and error code it
// should surface as. Unknown errors become 500 INTERNAL_ERROR.
func FromError(c *gin.Context, err error) {
	var (
		ve *apperr.ValidationError
		nf *apperr.NotFoundError
		sc *apperr.StateConflictError
		se *apperr.ScoringError
		re *apperr.RetryableError
	)
	switch {
	case errors.As(err, &ve):
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"detail": ve.Msg})
	case errors.As(err, &nf):
		Fail(c, http.StatusNotFound, ErrNotFound)
	case errors.As(err, &sc):
		FailWithFields(c, http.StatusConflict, ErrStateConflict, map[string]string{
			"current_status": sc.Current,
			"detail":         sc.Msg,
		})
	case errors.As(err, &se):
		FailWithFields(c, http.StatusUnprocessableEntity, ErrScoringFailed, map[string]string{"detail": se.Error()})
	case errors.As(err, &re):
		Fail(c, http.StatusServiceUnavailable, ErrGradingUnavailable)
	default:
		Fail(c, http.StatusInternalServerError, ErrInternal)
	}
}
