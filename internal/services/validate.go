package services

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

// moneyPlaces is the scale of every decimal(20,2) amount column.
const moneyPlaces = 2

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Amount tags (gte, gt) see decimals as float64.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs struct tags and folds failures into a ValidationError.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
		names = append(names, fe.Field())
	}
	return &Error{
		Kind:    KindValidation,
		Message: "invalid " + strings.Join(names, ", "),
		Fields:  fields,
	}
}

// validateMoney rejects amounts the amount columns would round on insert,
// which would let stored milestones stop summing to the stored total.
func validateMoney(amounts map[string]decimal.Decimal) error {
	fields := map[string]string{}
	for name, d := range amounts {
		if !d.Equal(d.Round(moneyPlaces)) {
			fields[name] = fmt.Sprintf("must have at most %d decimal places", moneyPlaces)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &Error{
		Kind:    KindValidation,
		Message: "invalid " + strings.Join(slices.Sorted(maps.Keys(fields)), ", "),
		Fields:  fields,
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " item(s)"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "dive":
		return "is invalid"
	}
	return "failed " + fe.Tag()
}
