package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// Draft is the delivery form submitted with an order.
type Draft struct {
	Name          string `json:"name" validate:"required,max=100"`
	Contact       string `json:"contact" validate:"required,max=100"`
	Address       string `json:"address" validate:"required,max=500"`
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
	Message       string `json:"message" validate:"max=500"`
}

// Trimmed returns the draft with surrounding whitespace removed.
func (d Draft) Trimmed() Draft {
	return Draft{
		Name:          strings.TrimSpace(d.Name),
		Contact:       strings.TrimSpace(d.Contact),
		Address:       strings.TrimSpace(d.Address),
		PaymentMethod: strings.TrimSpace(d.PaymentMethod),
		Message:       strings.TrimSpace(d.Message),
	}
}

var draftValidator = newDraftValidator()

func newDraftValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return enums.PaymentMethod(fl.Field().String()).IsValid()
	})
	return v
}

// form messages keyed by json field, then validator tag.
var draftMessages = map[string]map[string]string{
	"name": {
		"required": "Name is required",
		"max":      "Name must be less than 100 characters",
	},
	"contact": {
		"required": "Contact information is required",
		"max":      "Contact must be less than 100 characters",
	},
	"address": {
		"required": "Address is required",
		"max":      "Address must be less than 500 characters",
	},
	"payment_method": {
		"required":       "Please select a payment method",
		"payment_method": "Please select a payment method",
	},
	"message": {
		"max": "Message must be less than 500 characters",
	},
}

// Validate trims the draft and reports the first violation in field order.
func (d Draft) Validate() (Draft, error) {
	trimmed := d.Trimmed()
	err := draftValidator.Struct(trimmed)
	if err == nil {
		return trimmed, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return trimmed, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	first := verrs[0]
	msg := draftMessages[first.Field()][first.Tag()]
	if msg == "" {
		msg = "validation failed"
	}
	return trimmed, pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": first.Field()})
}
