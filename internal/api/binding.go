package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"portfolio-dashboard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var fieldNamesOnce sync.Once

// registerFieldNames makes binding errors name fields the way clients send
// them, e.g. fundPassword or per_page instead of the Go field name
func registerFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
	})
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// respondBindError answers a request whose body or query could not be
// bound. Rule failures use the VALIDATION_FAILED shape, anything else code.
func respondBindError(c *gin.Context, err error, code, message string) {
	if v := bindingValidationError(err); v != nil {
		respondError(c, v, http.StatusBadRequest, code, message)
		return
	}
	c.JSON(http.StatusBadRequest, CreateErrorResponse(code, message, err.Error(), getTraceID(c)))
}

// bindingValidationError converts the first failed binding rule of err into
// a ValidationError. It returns nil for errors that are not rule failures,
// such as malformed JSON.
func bindingValidationError(err error) *services.ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return nil
	}
	fe := fieldErrs[0]
	return &services.ValidationError{Field: fe.Field(), Message: describeRule(fe)}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("must have at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "alpha":
		return "must contain letters only"
	}
	return fmt.Sprintf("failed the %s rule", fe.Tag())
}
