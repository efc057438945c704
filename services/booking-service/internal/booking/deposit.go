package booking

// DepositCents is the amount due at booking: price*pct/100 rounded down.
// A computed deposit of zero or less means the full price is due.
func DepositCents(priceCents int64, pct int) int64 {
	due := priceCents * int64(pct) / 100
	if due <= 0 {
		return priceCents
	}
	return due
}
