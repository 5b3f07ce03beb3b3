// Package currency normalizes amounts to a common USD-equivalent unit.
package currency

// Converter converts amounts to USD using a fixed rate table.
// Rates are expressed as units of currency per 1 USD.
type Converter struct {
	rates map[string]float64
}

// NewConverter creates a converter from a rate table. The table is copied
// so later mutation by the caller cannot change conversion results.
func NewConverter(rates map[string]float64) *Converter {
	copied := make(map[string]float64, len(rates))
	for code, rate := range rates {
		copied[code] = rate
	}
	return &Converter{rates: copied}
}

// ToUSD converts an amount in the given currency to USD.
// Unknown currencies are treated as already-USD (divisor 1.0).
// No rounding happens here; presentation boundaries round to 2 decimals.
func (c *Converter) ToUSD(amount float64, code string) float64 {
	rate, ok := c.rates[code]
	if !ok || rate == 0 {
		return amount
	}
	return amount / rate
}

// Rate returns the divisor used for a currency code.
func (c *Converter) Rate(code string) float64 {
	if rate, ok := c.rates[code]; ok && rate != 0 {
		return rate
	}
	return 1.0
}
