// AngelaMos | 2026
// validation.go

package core

import (
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var phonePattern = regexp.MustCompile(`^\d{8,15}$`)

// PaperFormats lists the sheet sizes accepted for print jobs.
var PaperFormats = []string{"A0", "A1", "A2", "A3", "A4", "A5", "A6"}

// NewValidator returns a validator that understands the shop's custom tags
// and compares decimal.Decimal fields numerically (gt=0, gte=0, ...).
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	//nolint:errcheck // tag names are static
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	//nolint:errcheck // tag names are static
	_ = v.RegisterValidation("paper_format", func(fl validator.FieldLevel) bool {
		return IsPaperFormat(fl.Field().String())
	})

	return v
}

func IsPaperFormat(s string) bool {
	for _, f := range PaperFormats {
		if f == s {
			return true
		}
	}
	return false
}

func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}
