package domain

import "time"

// ShippingInfo is the shipping half of the checkout form.
type ShippingInfo struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	PostalCode    string `json:"postalCode"`
	StreetAddress string `json:"streetAddress"`
	DetailAddress string `json:"detailAddress"`
	DeliveryNotes string `json:"deliveryNotes,omitempty"`
}

// PaymentMethod enumerates the accepted payment options.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentPayPal     PaymentMethod = "paypal"
)

// PaymentInfo is the payment half of the checkout form.
type PaymentInfo struct {
	Method     PaymentMethod `json:"method"`
	CardNumber string        `json:"cardNumber"`
	ExpiryDate string        `json:"expiryDate"`
	CVV        string        `json:"cvv"`
}

// CheckoutForm is the full checkout submission.
type CheckoutForm struct {
	Shipping ShippingInfo `json:"shippingInfo"`
	Payment  PaymentInfo  `json:"paymentInfo"`
}

// OrderSummary freezes the cart figures at the moment the order was placed.
type OrderSummary struct {
	Items       []CartLine `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	Discount    float64    `json:"discount"`
	ShippingFee float64    `json:"shippingFee"`
	Total       float64    `json:"total"`
}

// OrderPayment keeps only what may be shown back to the shopper.
type OrderPayment struct {
	Method       PaymentMethod `json:"method"`
	CardLastFour string        `json:"cardLastFour,omitempty"`
}

// OrderConfirmation is displayed once on the confirmation screen and never
// persisted beyond the ephemeral store.
type OrderConfirmation struct {
	OrderID           string       `json:"orderId"`
	OrderDate         time.Time    `json:"orderDate"`
	EstimatedDelivery time.Time    `json:"estimatedDelivery"`
	Shipping          ShippingInfo `json:"shippingInfo"`
	Payment           OrderPayment `json:"paymentInfo"`
	Summary           OrderSummary `json:"orderSummary"`
}
