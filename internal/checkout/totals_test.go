package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvacmart/storefront/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestTotals(t *testing.T) {
	t.Run("free shipping above threshold", func(t *testing.T) {
		lines := []Line{{ProductID: 1, UnitPrice: dec("1000"), Quantity: 2}}
		s, err := Totals(lines, nil, DefaultRules)
		require.NoError(t, err)
		assertDec(t, "2000", s.Subtotal)
		assertDec(t, "0", s.ShippingCost)
		assertDec(t, "360", s.TaxAmount)
		assertDec(t, "0", s.DiscountAmount)
		assertDec(t, "2360", s.Total)
		assert.Equal(t, 2, s.ItemCount)
	})

	t.Run("flat shipping below threshold", func(t *testing.T) {
		lines := []Line{{ProductID: 1, UnitPrice: dec("199.50"), Quantity: 2}}
		s, err := Totals(lines, nil, DefaultRules)
		require.NoError(t, err)
		assertDec(t, "399", s.Subtotal)
		assertDec(t, "99", s.ShippingCost)
		assertDec(t, "71.82", s.TaxAmount)
		assertDec(t, "569.82", s.Total)
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		s, err := Totals([]Line{{UnitPrice: dec("500"), Quantity: 1}}, nil, DefaultRules)
		require.NoError(t, err)
		assertDec(t, "0", s.ShippingCost)
	})

	t.Run("empty cart", func(t *testing.T) {
		_, err := Totals(nil, nil, DefaultRules)
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("non positive quantity", func(t *testing.T) {
		_, err := Totals([]Line{{UnitPrice: dec("10"), Quantity: 0}}, nil, DefaultRules)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("percentage coupon capped by max discount", func(t *testing.T) {
		c := &domain.Coupon{Code: "COOL10", Type: domain.CouponPercentage, Value: dec("10"), MaxDiscount: dec("150")}
		s, err := Totals([]Line{{UnitPrice: dec("1000"), Quantity: 2}}, c, DefaultRules)
		require.NoError(t, err)
		assertDec(t, "150", s.DiscountAmount)
		assertDec(t, "2210", s.Total)
		assert.Equal(t, "COOL10", s.CouponCode)
	})

	t.Run("fixed coupon never exceeds subtotal", func(t *testing.T) {
		c := &domain.Coupon{Code: "BIG", Type: domain.CouponFixed, Value: dec("5000")}
		s, err := Totals([]Line{{UnitPrice: dec("300"), Quantity: 1}}, c, DefaultRules)
		require.NoError(t, err)
		assertDec(t, "300", s.DiscountAmount)
		// 300 + 99 + 54 - 300
		assertDec(t, "153", s.Total)
	})

	t.Run("free shipping coupon", func(t *testing.T) {
		c := &domain.Coupon{Code: "SHIPFREE", Type: domain.CouponFreeShipping}
		s, err := Totals([]Line{{UnitPrice: dec("100"), Quantity: 1}}, c, DefaultRules)
		require.NoError(t, err)
		assertDec(t, "99", s.DiscountAmount)
		assertDec(t, "118", s.Total)
	})

	t.Run("unknown coupon type", func(t *testing.T) {
		c := &domain.Coupon{Code: "X", Type: "BOGO"}
		_, err := Totals([]Line{{UnitPrice: dec("100"), Quantity: 1}}, c, DefaultRules)
		assert.ErrorIs(t, err, ErrCouponUnknownType)
	})
}

func TestTotalsIdentity(t *testing.T) {
	coupons := []*domain.Coupon{
		nil,
		{Type: domain.CouponPercentage, Value: dec("15")},
		{Type: domain.CouponFixed, Value: dec("250")},
		{Type: domain.CouponFreeShipping},
	}
	prices := []string{"49.99", "120", "499.99", "1500", "32999"}
	for _, c := range coupons {
		for _, p := range prices {
			for qty := 1; qty <= 3; qty++ {
				s, err := Totals([]Line{{UnitPrice: dec(p), Quantity: qty}}, c, DefaultRules)
				require.NoError(t, err)
				want := s.Subtotal.Add(s.ShippingCost).Add(s.TaxAmount).Sub(s.DiscountAmount)
				assert.True(t, want.Equal(s.Total))
				assert.True(t, s.DiscountAmount.LessThanOrEqual(s.Subtotal))
				assert.False(t, s.DiscountAmount.IsNegative())
			}
		}
	}
}
