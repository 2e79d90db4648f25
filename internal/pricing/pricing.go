package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	baseTierPayout = decimal.RequireFromString("6.00")
	midTierPayout  = decimal.RequireFromString("8.00")
	profitBase     = decimal.RequireFromString("4.00")
	profitPerKm    = decimal.RequireFromString("0.12")
	profitCap      = decimal.RequireFromString("5.00")
	rushSurcharge  = decimal.RequireFromString("3.00")
	baseTierMaxKm  = decimal.NewFromInt(2)
	midTierMaxKm   = decimal.NewFromInt(4)
)

// Breakdown is the full money split persisted against an order at creation.
type Breakdown struct {
	DriverPrice    decimal.Decimal
	PlatformProfit decimal.Decimal
	ProfitRaw      decimal.Decimal
	StorePrice     decimal.Decimal
	RushFee        decimal.Decimal
	RushApplied    bool
}

// Quote derives the price breakdown from trip distance and the delivery
// window. It is pure: the caller supplies the wall clock.
//
// The effective scheduling instant defaults to now, is overridden by
// deliverBefore when present, and by deliverAfter when that is present too.
func Quote(distanceKm float64, deliverBefore, deliverAfter *time.Time, now time.Time) Breakdown {
	km := decimal.NewFromFloat(distanceKm)
	if km.IsNegative() {
		km = decimal.Zero
	}

	driver := driverPayout(km)

	profitRaw := profitBase.Add(profitPerKm.Mul(km))
	profit := profitRaw
	if profitRaw.GreaterThan(profitCap) {
		profit = profitCap
		// The platform caps its take; the excess goes to the driver.
		driver = driver.Add(profitRaw.Sub(profitCap))
	}

	store := driver.Add(profit)

	rushFee := decimal.Zero
	rushApplied := isRushHour(effectiveInstant(deliverBefore, deliverAfter, now))
	if rushApplied {
		rushFee = rushSurcharge
		store = store.Add(rushSurcharge)
	}

	return Breakdown{
		DriverPrice:    driver.Round(2),
		PlatformProfit: profit.Round(2),
		ProfitRaw:      profitRaw.Round(2),
		StorePrice:     store.Round(2),
		RushFee:        rushFee.Round(2),
		RushApplied:    rushApplied,
	}
}

func driverPayout(km decimal.Decimal) decimal.Decimal {
	switch {
	case km.LessThanOrEqual(baseTierMaxKm):
		return baseTierPayout
	case km.LessThanOrEqual(midTierMaxKm):
		return midTierPayout
	default:
		return midTierPayout.Add(km.Sub(midTierMaxKm))
	}
}

func effectiveInstant(deliverBefore, deliverAfter *time.Time, now time.Time) time.Time {
	instant := now
	if deliverBefore != nil {
		instant = *deliverBefore
	}
	if deliverAfter != nil {
		instant = *deliverAfter
	}
	return instant
}

// isRushHour reports whether t falls in 07:00-08:30 or 16:00-18:30, both ends
// inclusive.
func isRushHour(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	return (minutes >= 420 && minutes <= 510) || (minutes >= 960 && minutes <= 1110)
}
