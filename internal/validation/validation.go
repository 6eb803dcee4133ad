package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"invoicing-backend/internal/apperr"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("siren", func(fl validator.FieldLevel) bool {
			return len(Digits(fl.Field().String())) == 9
		})
		_ = validate.RegisterValidation("postcode_fr", func(fl validator.FieldLevel) bool {
			return len(Digits(fl.Field().String())) == 5
		})
	})
	return validate
}

// Digits strips everything that is not 0-9, so "123 456 789" becomes "123456789".
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Struct validates v and converts failures into an *apperr.ValidationError
// whose field names are the json paths.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &apperr.ValidationError{}
	for _, fe := range ves {
		out.Add(fieldPath(fe), message(fe))
	}
	return out
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "siren":
		return "must contain exactly 9 digits"
	case "postcode_fr":
		return "must contain exactly 5 digits"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}
