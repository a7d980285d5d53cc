package specialist

import "math"

// FinalPrice is base + fee (0 when unset), rounded to cents.
func FinalPrice(base float64, fee *float64) float64 {
	total := base
	if fee != nil {
		total += *fee
	}
	return math.Round(total*100) / 100
}

// repriceOnUpdate recomputes final_price when either input is supplied,
// reusing the stored value for the one that is not.
func repriceOnUpdate(sp *Specialist, base, fee *float64) {
	if base == nil && fee == nil {
		return
	}
	if base != nil {
		sp.BasePrice = *base
	}
	if fee != nil {
		f := *fee
		sp.PlatformFee = &f
	}
	sp.FinalPrice = FinalPrice(sp.BasePrice, sp.PlatformFee)
}
