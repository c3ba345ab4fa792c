package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate performs validation on a struct.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// FieldErrors flattens validator errors into a field -> message map, keyed
// by the lower-cased struct field so the client can attach messages to form
// inputs.
func FieldErrors(err error) map[string]string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return map[string]string{"request": err.Error()}
	}

	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		name := strings.ToLower(e.Field()[:1]) + e.Field()[1:]
		switch e.Tag() {
		case "required":
			fields[name] = "is required"
		case "email":
			fields[name] = "must be a valid email address"
		case "min":
			fields[name] = fmt.Sprintf("must be at least %s characters", e.Param())
		case "max":
			fields[name] = fmt.Sprintf("must be at most %s characters", e.Param())
		case "oneof":
			fields[name] = "must be one of: " + e.Param()
		case "uuid":
			fields[name] = "must be a valid id"
		default:
			fields[name] = "is invalid"
		}
	}
	return fields
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it responds with field-level details and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", FieldErrors(err))
			return false
		}
		BadRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	if err := Validate(obj); err != nil {
		ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", FieldErrors(err))
		return false
	}
	return true
}
