package pricing

import (
	"math"

	"github.com/tomerlevy/claimdesk/internal/session"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Coupon is the validated projection handed to price computation. Business
// rules (expiry, usage caps) are enforced by the repository at validation
// time; this shape only carries what the price needs.
type Coupon struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`
}

// Resolver binds base prices per service type.
type Resolver struct {
	claimsBase  int
	parkingBase int
}

// NewResolver creates a price resolver from the configured base prices.
func NewResolver(claimsBase, parkingBase int) *Resolver {
	return &Resolver{claimsBase: claimsBase, parkingBase: parkingBase}
}

// BasePrice returns the undiscounted price for a service type.
func (r *Resolver) BasePrice(serviceType session.ServiceType) int {
	if serviceType == session.ServiceParking {
		return r.parkingBase
	}
	return r.claimsBase
}

// Resolve computes the final price for a service type with an optional coupon.
func (r *Resolver) Resolve(serviceType session.ServiceType, coupon *Coupon) int {
	return FinalPrice(r.BasePrice(serviceType), coupon)
}

// FinalPrice applies a coupon to a base price. A nil or partially populated
// coupon (missing type, non-positive value) leaves the base price unchanged.
// Percentage discounts round half away from zero; the result is clamped to
// [0, base].
func FinalPrice(base int, coupon *Coupon) int {
	if coupon == nil || coupon.DiscountValue <= 0 {
		return base
	}

	var price int
	switch coupon.DiscountType {
	case DiscountPercentage:
		price = int(math.Round(float64(base) * (1 - coupon.DiscountValue/100)))
	case DiscountFixed:
		price = base - int(math.Round(coupon.DiscountValue))
	default:
		return base
	}

	if price < 0 {
		return 0
	}
	if price > base {
		return base
	}
	return price
}
