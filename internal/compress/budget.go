package compress

// Budget tracks token-equivalent capacity for one closure pass. Consumption
// is monotone; the root is the only charge allowed past capacity.
type Budget struct {
	capacity int
	consumed int
}

// NewBudget creates a budget with the given token capacity.
func NewBudget(tokens int) *Budget {
	if tokens < 0 {
		tokens = 0
	}
	return &Budget{capacity: tokens}
}

// Capacity returns the total capacity.
func (b *Budget) Capacity() int { return b.capacity }

// Consumed returns the running consumption.
func (b *Budget) Consumed() int { return b.consumed }

// Remaining returns the unconsumed capacity, never negative.
func (b *Budget) Remaining() int {
	if b.consumed >= b.capacity {
		return 0
	}
	return b.capacity - b.consumed
}

// Fits reports whether a charge of the given size would stay within capacity.
func (b *Budget) Fits(tokens int) bool {
	return b.consumed+tokens <= b.capacity
}

// Charge records consumption. It does not enforce capacity; callers gate
// with Fits first, except for the root charge.
func (b *Budget) Charge(tokens int) {
	b.consumed += tokens
}

// EstimateTokens approximates the token count of rendered text. The ratio of
// roughly four bytes per token holds well enough for source code.
func EstimateTokens(s string) int {
	return len(s) / 4
}
