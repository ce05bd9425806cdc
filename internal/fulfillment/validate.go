package fulfillment

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"storefront/backend/internal/apperr"
	"storefront/backend/internal/domain"
)

// Validator checks a sale payload before anything is read from the store.
type Validator struct {
	validate        *validator.Validate
	defaultCurrency string
}

func NewValidator(defaultCurrency string) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Validator{
		validate:        v,
		defaultCurrency: strings.ToUpper(strings.TrimSpace(defaultCurrency)),
	}
}

// Validate normalizes req and returns it, or a validation error keyed by the
// JSON path of every offending field.
func (v *Validator) Validate(req domain.SaleRequest) (domain.SaleRequest, error) {
	req = v.normalize(req)

	fields := map[string]string{}
	if err := v.validate.Struct(req); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return req, apperr.Wrap(apperr.CodeValidation, err, "validation failed")
		}
		for _, fieldErr := range errs {
			fields[fieldPath(fieldErr)] = validationMessage(fieldErr)
		}
	}
	if len(req.ProductLines) == 0 && len(req.ComboLines) == 0 {
		fields["lines"] = "at least one product or combo line is required"
	}

	if len(fields) > 0 {
		return req, apperr.Validation(fields)
	}
	return req, nil
}

func (v *Validator) normalize(req domain.SaleRequest) domain.SaleRequest {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.Notes = strings.TrimSpace(req.Notes)
	req.PaymentMethod = domain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(req.PaymentMethod))))
	req.ReceiptNumber = strings.TrimSpace(req.ReceiptNumber)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = v.defaultCurrency
	}

	productLines := make([]domain.ProductLine, len(req.ProductLines))
	for i, line := range req.ProductLines {
		line.ProductID = strings.TrimSpace(line.ProductID)
		productLines[i] = line
	}
	req.ProductLines = productLines

	comboLines := make([]domain.ComboLine, len(req.ComboLines))
	for i, line := range req.ComboLines {
		line.ComboID = strings.TrimSpace(line.ComboID)
		comboLines[i] = line
	}
	req.ComboLines = comboLines
	return req
}

// fieldPath drops the root struct name: SaleRequest.productLines[0].qty
// becomes productLines[0].qty.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required for transfer payments"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "iso4217":
		return "must be an ISO 4217 currency code"
	}
	return "is invalid"
}
