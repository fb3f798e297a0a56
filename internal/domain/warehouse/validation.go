package warehouse

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance lazily builds the shared validator.
// Decimals are presented to the validator as their sign, so the nonneg tag never converts the value.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return int64(d.Sign())
			}
			return nil
		}, decimal.Decimal{})
		_ = validate.RegisterValidation("nonneg", func(fl validator.FieldLevel) bool {
			return fl.Field().Int() >= 0
		})
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get("field"); name != "" {
				return name
			}
			return strings.ToLower(fld.Name)
		})
	})
	return validate
}

type partnerInput struct {
	ID string `field:"id" validate:"required"`
}

type productInput struct {
	ID    string          `field:"id" validate:"required"`
	Stock int             `field:"stock" validate:"gte=0"`
	Price decimal.Decimal `field:"price" validate:"nonneg"`
}

type batchInput struct {
	Stock int             `field:"stock" validate:"gte=0"`
	Price decimal.Decimal `field:"price" validate:"nonneg"`
}

type componentInput struct {
	Quantity int `field:"quantity" validate:"gt=0"`
}

// validateStruct runs the struct tags and turns the first failure into an INVALID_INPUT domain error
func validateStruct(input any) error {
	err := validatorInstance().Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return shared.NewDomainError(shared.CodeInvalidInput, describeFieldError(fe))
	}
	return shared.NewDomainError(shared.CodeInvalidInput, err.Error())
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "nonneg":
		return fmt.Sprintf("%s cannot be negative", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed '%s' validation", fe.Field(), fe.Tag())
	}
}
