package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

type cartTotals struct {
	subtotal   float64
	discounted float64
	quantity   int
}

// LineTotal is unitPrice × quantity, undiscounted.
func LineTotal(unitPrice float64, quantity int) float64 {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).InexactFloat64()
}

// totalsOf sums the lines first and rounds once to 2 places; rounding per line
// would drift away from the reference totals. A discount worth less than half
// a cent over the whole cart rounds away, leaving DiscountedTotal == Subtotal.
func totalsOf(lines []CartLine) cartTotals {
	subtotal := decimal.Zero
	discounted := decimal.Zero
	qty := 0
	for _, l := range lines {
		lt := decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
		keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(l.DiscountPercentage).Div(hundred))
		subtotal = subtotal.Add(lt)
		discounted = discounted.Add(lt.Mul(keep))
		qty += l.Quantity
	}
	return cartTotals{
		subtotal:   subtotal.Round(2).InexactFloat64(),
		discounted: discounted.Round(2).InexactFloat64(),
		quantity:   qty,
	}
}
