package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Money fields are decimals; expose them as float64 so numeric tags such
	// as gt=0 apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch d := field.Interface().(type) {
		case decimal.Decimal:
			f, _ := d.Float64()
			return f
		case decimal.NullDecimal:
			if !d.Valid {
				return nil
			}
			f, _ := d.Decimal.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return v
}

// validateStruct runs struct validation and folds the result into
// ErrInvalidInput with a readable list of failing fields.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}
