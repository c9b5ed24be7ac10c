package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"ticketing/pkg/logger"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
		RequestID:  logger.RequestID(c.Request.Context()),
	})
}

// RespondInvalidBody answers a failed ShouldBind* with 400 and the offending fields.
func RespondInvalidBody(c *gin.Context, err error) {
	RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, BindErrors(err))
}

// BindErrors flattens validator failures into FieldErrors; decode errors are
// passed through as text.
func BindErrors(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		out = append(out, FieldError{Field: field, Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}
