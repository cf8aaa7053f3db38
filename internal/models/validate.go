package models

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ruleValidator *validator.Validate
	validatorOnce sync.Once
)

// NewValidator returns a struct validator that understands decimal fields.
// Decimals are compared as float64 so the numeric tags (gt, gte) apply to them.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	return v
}

func validate() *validator.Validate {
	validatorOnce.Do(func() {
		ruleValidator = NewValidator()
	})
	return ruleValidator
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}
