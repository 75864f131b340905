package dto

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iho/factoryledger/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FieldErrors maps a request field to the rule it failed.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, tag := range e {
		parts = append(parts, field+" "+tag)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s: %s", domain.ErrValidation, strings.Join(parts, ", "))
}

func (e FieldErrors) Unwrap() error {
	return domain.ErrValidation
}

// Validate checks struct tags on a request and returns FieldErrors on failure.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(FieldErrors, len(validationErrors))
	for _, ve := range validationErrors {
		fields[ve.Namespace()[strings.Index(ve.Namespace(), ".")+1:]] = ve.Tag()
	}
	return fields
}
