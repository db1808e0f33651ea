package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations teaches v about decimal amounts, calendar dates and the ledger's custom tags.
// Handlers register the same rules on gin's binding validator so request DTOs and domain
// objects are checked identically.
func RegisterValidations(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		switch value := field.Interface().(type) {
		case decimal.Decimal:
			return value.String()
		case domain.Date:
			if value.IsZero() {
				return ""
			}
			return value.String()
		}
		return nil
	}, decimal.Decimal{}, domain.Date{})

	if err := v.RegisterValidation("min_amount", func(fl validator.FieldLevel) bool {
		amount, err := decimal.NewFromString(fl.Field().String())
		return err == nil && amount.GreaterThanOrEqual(domain.MinAmount)
	}); err != nil {
		return fmt.Errorf("register min_amount: %w", err)
	}

	if err := v.RegisterValidation("currency_code", func(fl validator.FieldLevel) bool {
		return IsCurrencyCode(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register currency_code: %w", err)
	}
	return nil
}

// IsCurrencyCode reports whether code looks like an ISO 4217 code.
func IsCurrencyCode(code string) bool {
	return currencyCodePattern.MatchString(code)
}

// validateStruct checks s against its validate tags and converts failures into apperrors.ErrValidation.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min_amount":
		return fmt.Sprintf("%s must be at least %s", field, domain.MinAmount)
	case "currency_code":
		return field + " must be a three-letter currency code"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func parseDate(field, value string) (domain.Date, error) {
	d, err := domain.ParseDate(value)
	if err != nil {
		return domain.Date{}, apperrors.NewValidationError(fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
	}
	return d, nil
}
