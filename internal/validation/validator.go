// Package validation checks showcase and item input with validator/v10 and
// reports failures as domain validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the showcase rules registered:
//
//	theme  a known showcase theme (empty passes; pair with required)
//	tag    printable, no path separator (blank passes; normalization drops it)
//	docid  usable as a document key: non-blank, no '/', no surrounding space
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "theme", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || domain.Theme(s).Valid()
	})
	mustRegister(v, "tag", func(fl validator.FieldLevel) bool {
		return validTag(fl.Field().String())
	})
	mustRegister(v, "docid", func(fl validator.FieldLevel) bool {
		return validDocID(fl.Field().String())
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

func validTag(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	if strings.Contains(s, "/") {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsPrint(r) }) < 0
}

func validDocID(s string) bool {
	return s != "" && s == strings.TrimSpace(s) && !strings.Contains(s, "/")
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[fieldPath(e)] = friendlyMessage(e)
	}
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

// fieldPath drops the struct name so nested errors read "tags[2]".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	unit := "characters"
	switch e.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = "entries"
	case reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64:
		unit = ""
	}

	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if unit == "" {
			return "must be at least " + e.Param()
		}
		return fmt.Sprintf("must have at least %s %s", e.Param(), unit)
	case "max":
		if unit == "" {
			return "must not exceed " + e.Param()
		}
		return fmt.Sprintf("must not exceed %s %s", e.Param(), unit)
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "theme":
		return "must be one of: wood velvet glass"
	case "tag":
		return "must be a printable tag without '/'"
	case "docid":
		return "must be an id without '/' or surrounding spaces"
	case "unique":
		return "must not contain duplicates"
	default:
		return "is invalid"
	}
}
