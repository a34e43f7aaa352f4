package enums

import "fmt"

// PaymentMethod is the label a shopper picks at checkout. No payment is processed.
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodGCash PaymentMethod = "gcash"
	PaymentMethodBank  PaymentMethod = "bank"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodGCash,
	PaymentMethodBank,
}

var paymentMethodLabels = map[PaymentMethod]string{
	PaymentMethodCOD:   "Cash on Delivery",
	PaymentMethodGCash: "GCash",
	PaymentMethodBank:  "Bank Transfer",
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// Label returns the display name.
func (p PaymentMethod) Label() string {
	return paymentMethodLabels[p]
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
