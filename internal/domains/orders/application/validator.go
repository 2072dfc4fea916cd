package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
)

// Draft is a structurally valid submission, trimmed and ready to persist.
type Draft struct {
	Buyer domain.BuyerInfo
	Lines []domain.CartLine
}

type buyerShape struct {
	FullName    string `json:"fullName" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
	Email       string `json:"email" validate:"required"`
}

// Quantity and unit price caps keep a single subtotal far inside int64.
type lineShape struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"gte=1,lte=1000000"`
	UnitPrice int64  `json:"unitPrice" validate:"gte=0,lte=1000000000000"`
}

// IntakeValidator checks submission shape before any write happens. It does
// not re-price lines against the catalog; unit prices are taken as given.
type IntakeValidator struct {
	validate *validator.Validate
}

// NewIntakeValidator builds a validator reporting fields by their JSON names.
func NewIntakeValidator() *IntakeValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &IntakeValidator{validate: v}
}

// Validate returns the first violation as a *ValidationError.
func (v *IntakeValidator) Validate(input types.PlaceOrderInput) (Draft, error) {
	if len(input.Lines) == 0 {
		return Draft{}, &ValidationError{Field: "cartLines", Reason: "must contain at least one line"}
	}

	buyer := domain.BuyerInfo{
		FullName:    strings.TrimSpace(input.Buyer.FullName),
		CompanyName: strings.TrimSpace(input.Buyer.CompanyName),
		Email:       strings.TrimSpace(input.Buyer.Email),
		Phone:       strings.TrimSpace(input.Buyer.Phone),
	}
	if err := v.check("buyerInfo", buyerShape{
		FullName:    buyer.FullName,
		CompanyName: buyer.CompanyName,
		Email:       buyer.Email,
	}); err != nil {
		return Draft{}, err
	}

	lines := make([]domain.CartLine, 0, len(input.Lines))
	var total int64
	for i, line := range input.Lines {
		line.ProductID = strings.TrimSpace(line.ProductID)
		prefix := fmt.Sprintf("cartLines[%d]", i)
		if err := v.check(prefix, lineShape(line)); err != nil {
			return Draft{}, err
		}
		subtotal, err := domain.LineAmount(line.Quantity, line.UnitPrice)
		if err == nil {
			total, err = domain.AddAmount(total, subtotal)
		}
		if err != nil {
			return Draft{}, &ValidationError{Field: prefix + ".unitPrice", Reason: "makes the order total too large"}
		}
		lines = append(lines, line)
	}

	if input.ClaimedTotal != nil && *input.ClaimedTotal < 0 {
		return Draft{}, &ValidationError{Field: "claimedTotal", Reason: "must not be negative"}
	}
	return Draft{Buyer: buyer, Lines: lines}, nil
}

func (v *IntakeValidator) check(prefix string, shape any) error {
	err := v.validate.Struct(shape)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: prefix, Reason: "is malformed"}
	}
	first := fieldErrs[0]
	return &ValidationError{Field: prefix + "." + first.Field(), Reason: describe(first)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return "is invalid"
	}
}
