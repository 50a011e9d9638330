package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/hvacmart/storefront/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Installment is one row of an amortization schedule.
type Installment struct {
	Month     int             `json:"month"`
	Payment   decimal.Decimal `json:"payment"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Balance   decimal.Decimal `json:"balance"`
}

type EmiQuote struct {
	PlanID        int64           `json:"plan_id,omitempty"`
	Bank          string          `json:"bank,omitempty"`
	Principal     decimal.Decimal `json:"principal"`
	AnnualRate    decimal.Decimal `json:"annual_rate"`
	TenureMonths  int             `json:"tenure_months"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	TotalPayable  decimal.Decimal `json:"total_payable"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	Schedule      []Installment   `json:"schedule,omitempty"`
}

// EMI returns the unrounded equated monthly installment:
// P*r*(1+r)^n / ((1+r)^n - 1) with r the monthly rate, or P/n at zero interest.
func EMI(principal, annualRate decimal.Decimal, months int) (decimal.Decimal, error) {
	if months <= 0 {
		return decimal.Zero, ErrInvalidEmiTerm
	}
	if annualRate.IsNegative() {
		return decimal.Zero, ErrInvalidEmiRate
	}
	if !principal.IsPositive() {
		return decimal.Zero, ErrInvalidEmiAmount
	}
	n := decimal.NewFromInt(int64(months))
	if annualRate.IsZero() {
		return principal.DivRound(n, 8), nil
	}
	r := annualRate.DivRound(twelve, 16).DivRound(hundred, 16)
	growth := decimal.NewFromInt(1).Add(r).Pow(n)
	return principal.Mul(r).Mul(growth).DivRound(growth.Sub(decimal.NewFromInt(1)), 8), nil
}

// Quote prices an EMI plan for principal. With schedule set the month by
// month split is included; the last row absorbs rounding so the balance ends
// at zero.
func Quote(principal, annualRate decimal.Decimal, months int, schedule bool) (*EmiQuote, error) {
	emi, err := EMI(principal, annualRate, months)
	if err != nil {
		return nil, err
	}
	monthly := emi.Round(2)
	total := monthly.Mul(decimal.NewFromInt(int64(months)))
	q := &EmiQuote{
		Principal:     principal.Round(2),
		AnnualRate:    annualRate,
		TenureMonths:  months,
		MonthlyAmount: monthly,
		TotalPayable:  total,
		TotalInterest: total.Sub(principal).Round(2),
	}
	if !schedule {
		return q, nil
	}
	r := annualRate.DivRound(twelve, 16).DivRound(hundred, 16)
	balance := principal
	for m := 1; m <= months; m++ {
		interest := balance.Mul(r).Round(2)
		pay := monthly
		part := pay.Sub(interest)
		if m == months {
			part = balance
			pay = part.Add(interest)
		}
		balance = balance.Sub(part)
		q.Schedule = append(q.Schedule, Installment{
			Month:     m,
			Payment:   pay.Round(2),
			Interest:  interest,
			Principal: part.Round(2),
			Balance:   balance.Round(2),
		})
	}
	if len(q.Schedule) > 0 {
		// keep totals consistent with the adjusted final row
		total = decimal.Zero
		for _, row := range q.Schedule {
			total = total.Add(row.Payment)
		}
		q.TotalPayable = total
		q.TotalInterest = total.Sub(principal).Round(2)
	}
	return q, nil
}

// Quotes prices every active plan whose minimum amount principal satisfies.
func Quotes(principal decimal.Decimal, plans []domain.EmiPlan) []EmiQuote {
	quotes := make([]EmiQuote, 0, len(plans))
	for _, p := range plans {
		if !p.Active || principal.LessThan(p.MinAmount) {
			continue
		}
		q, err := Quote(principal, p.AnnualRate, p.TenureMonths, false)
		if err != nil {
			continue
		}
		q.PlanID = p.ID
		q.Bank = p.Bank
		quotes = append(quotes, *q)
	}
	return quotes
}
