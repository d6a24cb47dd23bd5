package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/retailcore/internal/analytics/domain"
	customerdomain "github.com/smallbiznis/retailcore/internal/customer/domain"
	expensedomain "github.com/smallbiznis/retailcore/internal/expense/domain"
	locationdomain "github.com/smallbiznis/retailcore/internal/location/domain"
	productdomain "github.com/smallbiznis/retailcore/internal/product/domain"
	reportdomain "github.com/smallbiznis/retailcore/internal/report/domain"
	saledomain "github.com/smallbiznis/retailcore/internal/sale/domain"
	taxruledomain "github.com/smallbiznis/retailcore/internal/taxrule/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, saledomain.ErrInvalidOrganization),
		errors.Is(err, saledomain.ErrInvalidUser),
		errors.Is(err, taxruledomain.ErrInvalidOrganization),
		errors.Is(err, productdomain.ErrInvalidOrganization),
		errors.Is(err, locationdomain.ErrInvalidOrganization),
		errors.Is(err, customerdomain.ErrInvalidOrganization),
		errors.Is(err, expensedomain.ErrInvalidOrganization),
		errors.Is(err, analyticsdomain.ErrInvalidOrganization),
		errors.Is(err, reportdomain.ErrInvalidOrganization):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case errors.Is(err, saledomain.ErrEmptyCart),
		errors.Is(err, saledomain.ErrMissingLocation),
		errors.Is(err, saledomain.ErrInvalidQuantity),
		errors.Is(err, saledomain.ErrInvalidID),
		errors.Is(err, saledomain.ErrInvalidPrice),
		errors.Is(err, saledomain.ErrProductNotFound),
		errors.Is(err, saledomain.ErrProductNotStocked):
		return true
	case errors.Is(err, taxruledomain.ErrInvalidJurisdiction),
		errors.Is(err, taxruledomain.ErrInvalidTaxType),
		errors.Is(err, taxruledomain.ErrInvalidRate),
		errors.Is(err, taxruledomain.ErrInvalidEffectiveRange),
		errors.Is(err, taxruledomain.ErrInvalidID):
		return true
	case errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidSKU),
		errors.Is(err, productdomain.ErrInvalidPrice),
		errors.Is(err, productdomain.ErrInvalidQuantity),
		errors.Is(err, productdomain.ErrInvalidID):
		return true
	case errors.Is(err, locationdomain.ErrInvalidName),
		errors.Is(err, locationdomain.ErrInvalidID):
		return true
	case errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidID):
		return true
	case errors.Is(err, expensedomain.ErrInvalidCategory),
		errors.Is(err, expensedomain.ErrInvalidAmount),
		errors.Is(err, expensedomain.ErrInvalidID):
		return true
	case errors.Is(err, analyticsdomain.ErrInvalidPeriod),
		errors.Is(err, analyticsdomain.ErrInvalidRange):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, saledomain.ErrInsufficientStock),
		errors.Is(err, taxruledomain.ErrOverlappingRule),
		errors.Is(err, productdomain.ErrDuplicateSKU),
		errors.Is(err, locationdomain.ErrDuplicateCode):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, saledomain.ErrInsufficientStock):
		return "insufficient stock"
	case errors.Is(err, taxruledomain.ErrOverlappingRule):
		return "overlapping tax rule"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, saledomain.ErrNotFound),
		errors.Is(err, taxruledomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, locationdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, expensedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, saledomain.ErrProductNotFound):
		return saledomain.ErrProductNotFound.Error()
	case errors.Is(err, saledomain.ErrProductNotStocked):
		return saledomain.ErrProductNotStocked.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "empty_cart":
		return "cart must contain at least one item"
	case "missing_location":
		return "location is required"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog tags request-log entries with a coarse error
// type and the sentinel code, keeping log cardinality bounded.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}

	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusConflict:
		return "conflict", err.Error()
	case status == http.StatusNotFound:
		return "not_found", err.Error()
	case status == http.StatusUnauthorized:
		return "unauthorized", err.Error()
	default:
		return "validation", err.Error()
	}
}
