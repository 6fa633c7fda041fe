package domain

// Cart is the single cart aggregate of the shopping session.
// Subtotal, DiscountedTotal, LineCount and TotalQuantity are derived from Lines;
// build carts through Recalculate so they never drift.
type Cart struct {
	ID              int        `json:"id"`
	UserID          int        `json:"userId"`
	Lines           []CartLine `json:"products"`
	Subtotal        float64    `json:"total"`
	DiscountedTotal float64    `json:"discountedTotal"`
	LineCount       int        `json:"totalProducts"`
	TotalQuantity   int        `json:"totalQuantity"`
}

// CartLine is one product's presence in the cart.
type CartLine struct {
	ProductID          int     `json:"id"`
	Title              string  `json:"title"`
	UnitPrice          float64 `json:"price"`
	Quantity           int     `json:"quantity"`
	DiscountPercentage float64 `json:"discountPercentage"`
	LineTotal          float64 `json:"total"`
	Thumbnail          string  `json:"thumbnail"`
}

// WithQuantity returns a copy of the line carrying quantity and the matching line total.
func (l CartLine) WithQuantity(quantity int) CartLine {
	l.Quantity = quantity
	l.LineTotal = LineTotal(l.UnitPrice, quantity)
	return l
}

// Line returns the line for productID.
func (c *Cart) Line(productID int) (CartLine, bool) {
	if c == nil {
		return CartLine{}, false
	}
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// Clone returns a deep copy; nil stays nil.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	if c.Lines != nil {
		out.Lines = make([]CartLine, len(c.Lines))
		copy(out.Lines, c.Lines)
	}
	return &out
}

// Recalculate drops lines with a non-positive quantity, recomputes every line
// total and the four aggregate fields. It returns nil when no line is left:
// an empty cart is never kept.
func Recalculate(c Cart) *Cart {
	lines := make([]CartLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity <= 0 {
			continue
		}
		lines = append(lines, l.WithQuantity(l.Quantity))
	}
	if len(lines) == 0 {
		return nil
	}

	t := totalsOf(lines)
	c.Lines = lines
	c.Subtotal = t.subtotal
	c.DiscountedTotal = t.discounted
	c.LineCount = len(lines)
	c.TotalQuantity = t.quantity
	return &c
}
