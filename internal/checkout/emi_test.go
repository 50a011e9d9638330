package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvacmart/storefront/internal/domain"
)

func TestEMI(t *testing.T) {
	t.Run("standard amortization", func(t *testing.T) {
		emi, err := EMI(dec("100000"), dec("12"), 12)
		require.NoError(t, err)
		assertDec(t, "8884.88", emi.Round(2))
	})

	t.Run("no cost emi", func(t *testing.T) {
		emi, err := EMI(dec("36000"), dec("0"), 6)
		require.NoError(t, err)
		assertDec(t, "6000", emi)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := EMI(dec("1000"), dec("12"), 0)
		assert.ErrorIs(t, err, ErrInvalidEmiTerm)
		_, err = EMI(dec("1000"), dec("-1"), 3)
		assert.ErrorIs(t, err, ErrInvalidEmiRate)
		_, err = EMI(dec("0"), dec("12"), 3)
		assert.ErrorIs(t, err, ErrInvalidEmiAmount)
	})
}

func TestQuoteSchedule(t *testing.T) {
	q, err := Quote(dec("45000"), dec("15"), 9, true)
	require.NoError(t, err)
	require.Len(t, q.Schedule, 9)

	last := q.Schedule[len(q.Schedule)-1]
	assertDec(t, "0", last.Balance)

	principal := dec("0")
	total := dec("0")
	for _, row := range q.Schedule {
		principal = principal.Add(row.Principal)
		total = total.Add(row.Payment)
	}
	assertDec(t, "45000", principal)
	assert.True(t, total.Equal(q.TotalPayable))
	assert.True(t, q.TotalInterest.IsPositive())
}

func TestQuotesFiltersPlans(t *testing.T) {
	plans := []domain.EmiPlan{
		{ID: 1, Bank: "HDFC", TenureMonths: 3, AnnualRate: dec("0"), MinAmount: dec("10000"), Active: true},
		{ID: 2, Bank: "ICICI", TenureMonths: 12, AnnualRate: dec("14"), MinAmount: dec("50000"), Active: true},
		{ID: 3, Bank: "SBI", TenureMonths: 6, AnnualRate: dec("13"), MinAmount: dec("5000"), Active: false},
	}
	quotes := Quotes(dec("30000"), plans)
	require.Len(t, quotes, 1)
	assert.Equal(t, "HDFC", quotes[0].Bank)
	assertDec(t, "10000", quotes[0].MonthlyAmount)
}
