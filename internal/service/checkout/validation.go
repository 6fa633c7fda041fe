package checkout

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"storefront/internal/domain"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern  = regexp.MustCompile(`^[\d\s\-()]+$`)
	postalPattern = regexp.MustCompile(`^[A-Za-z0-9\s\-]{3,10}$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// Required reports whether value has any non-space content.
func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MinLength reports whether the trimmed value has at least min characters.
func MinLength(value string, min int) bool {
	return len([]rune(strings.TrimSpace(value))) >= min
}

func Email(value string) bool {
	return emailPattern.MatchString(value)
}

// Phone accepts digits, spaces, dashes and parentheses with at least ten digits.
func Phone(value string) bool {
	return phonePattern.MatchString(value) && len(digitsOnly(value)) >= 10
}

func PostalCode(value string) bool {
	return postalPattern.MatchString(strings.TrimSpace(value))
}

// CardNumber ignores separators and wants exactly sixteen digits.
func CardNumber(value string) bool {
	return len(digitsOnly(value)) == 16
}

// Expiry checks an MM/YY date that is not before the month of now.
func Expiry(value string, now time.Time) bool {
	m := expiryPattern.FindStringSubmatch(value)
	if m == nil {
		return false
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	curYear := now.Year() % 100
	curMonth := int(now.Month())
	if year < curYear {
		return false
	}
	return year > curYear || month >= curMonth
}

func CVV(value string) bool {
	return cvvPattern.MatchString(value)
}

// FormatCardNumber keeps the first sixteen digits, grouped by four.
func FormatCardNumber(value string) string {
	d := digitsOnly(value)
	if len(d) > 16 {
		d = d[:16]
	}
	var b strings.Builder
	for i, r := range d {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatExpiry turns up to four digits into MM/YY.
func FormatExpiry(value string) string {
	d := digitsOnly(value)
	if len(d) > 4 {
		d = d[:4]
	}
	if len(d) <= 2 {
		return d
	}
	return d[:2] + "/" + d[2:]
}

// FormatCVV keeps at most four digits.
func FormatCVV(value string) string {
	d := digitsOnly(value)
	if len(d) > 4 {
		d = d[:4]
	}
	return d
}

// Normalize applies the payment formatters to a submitted form. A value with
// more digits than its formatter keeps is left as submitted so that Validate
// rejects it instead of checking a truncated copy.
func Normalize(form domain.CheckoutForm) domain.CheckoutForm {
	if form.Payment.Method == "" {
		form.Payment.Method = domain.PaymentCreditCard
	}
	if form.Payment.Method == domain.PaymentPayPal {
		form.Payment.CardNumber = ""
		form.Payment.ExpiryDate = ""
		form.Payment.CVV = ""
		return form
	}
	form.Payment.CardNumber = formatWithin(form.Payment.CardNumber, 16, FormatCardNumber)
	form.Payment.ExpiryDate = formatWithin(form.Payment.ExpiryDate, 4, FormatExpiry)
	form.Payment.CVV = formatWithin(form.Payment.CVV, 4, FormatCVV)
	return form
}

func formatWithin(value string, maxDigits int, format func(string) string) string {
	if len(digitsOnly(value)) > maxDigits {
		return value
	}
	return format(value)
}

// Validate returns field errors keyed shipping.<field> and payment.<field>.
// An empty map means the form is valid.
func Validate(form domain.CheckoutForm, now time.Time) map[string][]string {
	errs := map[string][]string{}
	add := func(field, msg string) {
		errs[field] = append(errs[field], msg)
	}

	s := form.Shipping
	switch {
	case !Required(s.Name):
		add("shipping.name", "Name is required")
	case !MinLength(s.Name, 2):
		add("shipping.name", "Name must be at least 2 characters")
	}
	switch {
	case !Required(s.Phone):
		add("shipping.phone", "Phone number is required")
	case !Phone(s.Phone):
		add("shipping.phone", "Please enter a valid phone number")
	}
	switch {
	case !Required(s.Email):
		add("shipping.email", "Email is required")
	case !Email(s.Email):
		add("shipping.email", "Please enter a valid email address")
	}
	switch {
	case !Required(s.PostalCode):
		add("shipping.postalCode", "Postal code is required")
	case !PostalCode(s.PostalCode):
		add("shipping.postalCode", "Please enter a valid postal code")
	}
	switch {
	case !Required(s.StreetAddress):
		add("shipping.streetAddress", "Street address is required")
	case !MinLength(s.StreetAddress, 5):
		add("shipping.streetAddress", "Street address must be at least 5 characters")
	}
	if !Required(s.DetailAddress) {
		add("shipping.detailAddress", "Detail address is required")
	}

	p := form.Payment
	switch p.Method {
	case domain.PaymentPayPal:
		return errs
	case domain.PaymentCreditCard, domain.PaymentDebitCard:
	default:
		add("payment.method", fmt.Sprintf("Unsupported payment method %q", p.Method))
		return errs
	}
	switch {
	case !Required(p.CardNumber):
		add("payment.cardNumber", "Card number is required")
	case !CardNumber(p.CardNumber):
		add("payment.cardNumber", "Card number must be 16 digits")
	}
	switch {
	case !Required(p.ExpiryDate):
		add("payment.expiryDate", "Expiry date is required")
	case !Expiry(p.ExpiryDate, now):
		add("payment.expiryDate", "Please enter a valid expiry date (MM/YY)")
	}
	switch {
	case !Required(p.CVV):
		add("payment.cvv", "CVV is required")
	case !CVV(p.CVV):
		add("payment.cvv", "CVV must be 3 or 4 digits")
	}
	return errs
}

func digitsOnly(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, value)
}
