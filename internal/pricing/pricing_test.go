package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var quietHour = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 1, hour, minute, 0, 0, time.UTC)
}

func money(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad money literal %q: %v", value, err)
	}
	return d
}

func assertMoney(t *testing.T, field string, got decimal.Decimal, expected string) {
	t.Helper()
	if !got.Equal(money(t, expected)) {
		t.Fatalf("%s: expected %s, got %s", field, expected, got)
	}
}

func TestQuotePayoutTiers(t *testing.T) {
	tests := []struct {
		name      string
		km        float64
		driver    string
		profit    string
		profitRaw string
		store     string
	}{
		{name: "base tier", km: 1, driver: "6.00", profit: "4.12", profitRaw: "4.12", store: "10.12"},
		{name: "base tier boundary", km: 2, driver: "6.00", profit: "4.24", profitRaw: "4.24", store: "10.24"},
		{name: "mid tier", km: 3, driver: "8.00", profit: "4.36", profitRaw: "4.36", store: "12.36"},
		{name: "mid tier boundary", km: 4, driver: "8.00", profit: "4.48", profitRaw: "4.48", store: "12.48"},
		{name: "per-km tier", km: 5, driver: "9.00", profit: "4.60", profitRaw: "4.60", store: "13.60"},
		{name: "profit cap overflow", km: 10, driver: "14.20", profit: "5.00", profitRaw: "5.20", store: "19.20"},
		{name: "negative distance clamped", km: -3, driver: "6.00", profit: "4.00", profitRaw: "4.00", store: "10.00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Quote(tc.km, nil, nil, quietHour)
			assertMoney(t, "driver", got.DriverPrice, tc.driver)
			assertMoney(t, "profit", got.PlatformProfit, tc.profit)
			assertMoney(t, "profit raw", got.ProfitRaw, tc.profitRaw)
			assertMoney(t, "store", got.StorePrice, tc.store)
			if got.RushApplied {
				t.Fatal("expected no rush at midday")
			}
			if !got.RushFee.IsZero() {
				t.Fatalf("expected zero rush fee, got %s", got.RushFee)
			}
		})
	}
}

func TestQuoteRushSurchargeHitsStoreOnly(t *testing.T) {
	quiet := Quote(5, nil, nil, quietHour)
	rush := Quote(5, nil, nil, at(7, 30))

	if !rush.RushApplied {
		t.Fatal("expected rush at 07:30")
	}
	assertMoney(t, "rush fee", rush.RushFee, "3.00")
	if !rush.DriverPrice.Equal(quiet.DriverPrice) {
		t.Fatalf("driver payout changed under rush: %s vs %s", rush.DriverPrice, quiet.DriverPrice)
	}
	if !rush.StorePrice.Sub(quiet.StorePrice).Equal(rush.RushFee) {
		t.Fatalf("store delta %s does not match rush fee", rush.StorePrice.Sub(quiet.StorePrice))
	}
}

func TestQuoteRushWindowBoundaries(t *testing.T) {
	tests := []struct {
		name string
		when time.Time
		rush bool
	}{
		{name: "before morning window", when: at(6, 59), rush: false},
		{name: "morning window start", when: at(7, 0), rush: true},
		{name: "morning window end", when: at(8, 30), rush: true},
		{name: "after morning window", when: at(8, 31), rush: false},
		{name: "evening window start", when: at(16, 0), rush: true},
		{name: "evening window end", when: at(18, 30), rush: true},
		{name: "after evening window", when: at(18, 31), rush: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Quote(5, nil, nil, tc.when)
			if got.RushApplied != tc.rush {
				t.Fatalf("expected rush=%v at %s", tc.rush, tc.when.Format("15:04"))
			}
		})
	}
}

func TestQuoteSchedulingPrecedence(t *testing.T) {
	rushTime := at(7, 30)
	quietTime := at(12, 0)

	// deliver_before overrides now
	got := Quote(5, &rushTime, nil, quietHour)
	if !got.RushApplied {
		t.Fatal("expected deliver_before to override now")
	}

	// deliver_after overrides deliver_before
	got = Quote(5, &rushTime, &quietTime, quietHour)
	if got.RushApplied {
		t.Fatal("expected deliver_after to override deliver_before")
	}
}

func TestQuoteIsDeterministic(t *testing.T) {
	first := Quote(7.3, nil, nil, quietHour)
	second := Quote(7.3, nil, nil, quietHour)

	if !first.DriverPrice.Equal(second.DriverPrice) ||
		!first.StorePrice.Equal(second.StorePrice) ||
		!first.PlatformProfit.Equal(second.PlatformProfit) {
		t.Fatal("identical inputs produced different breakdowns")
	}
}
