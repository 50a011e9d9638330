package adminapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

const (
	defaultDashboardDays = 30
	maxDashboardDays     = 365
)

// paidStatuses are the order states that count towards revenue.
var paidStatuses = []string{
	domain.OrderConfirmed,
	domain.OrderProcessing,
	domain.OrderShipped,
	domain.OrderDelivered,
}

type orderValueStats struct {
	Count  int             `json:"count"`
	Mean   decimal.Decimal `json:"mean"`
	Median decimal.Decimal `json:"median"`
	P90    decimal.Decimal `json:"p90"`
	Max    decimal.Decimal `json:"max"`
}

type dashboard struct {
	Days            int              `json:"days"`
	OrdersByStatus  map[string]int64 `json:"orders_by_status"`
	Revenue         decimal.Decimal  `json:"revenue"`
	Customers       int64            `json:"customers"`
	NewCustomers    int64            `json:"new_customers"`
	LowStockCount   int64            `json:"low_stock_count"`
	PendingReviews  int64            `json:"pending_reviews"`
	OrderValueStats orderValueStats  `json:"order_value_stats"`
}

func registerDashboardRoutes() {
	webserver.AdminGET("/dashboard", getDashboard)
}

// getDashboard summarises the last ?days=N days (30 by default). Status
// counts and the low-stock figure are not windowed.
func getDashboard(c echo.Context) error {
	days := cast.ToInt(c.QueryParam("days"))
	if days <= 0 {
		days = defaultDashboardDays
	}
	if days > maxDashboardDays {
		days = maxDashboardDays
	}
	since := time.Now().AddDate(0, 0, -days)

	out := dashboard{Days: days, OrdersByStatus: map[string]int64{}}
	var totals []decimal.Decimal

	g, ctx := errgroup.WithContext(c.Request().Context())
	db := GetAppContext(c).DB().WithContext(ctx)

	g.Go(func() error {
		var rows []struct {
			Status string
			Count  int64
		}
		err := db.Model(&domain.Order{}).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&rows).Error
		if err != nil {
			return err
		}
		for _, r := range rows {
			out.OrdersByStatus[r.Status] = r.Count
		}
		return nil
	})
	g.Go(func() error {
		return db.Model(&domain.Order{}).
			Where("status IN ? AND created_at >= ?", paidStatuses, since).
			Order("total ASC").
			Pluck("total", &totals).Error
	})
	g.Go(func() error {
		return db.Model(&domain.User{}).Where("role = ?", domain.RoleCustomer).Count(&out.Customers).Error
	})
	g.Go(func() error {
		return db.Model(&domain.User{}).
			Where("role = ? AND created_at >= ?", domain.RoleCustomer, since).
			Count(&out.NewCustomers).Error
	})
	g.Go(func() error {
		return lowStock(db.Model(&domain.Inventory{})).Count(&out.LowStockCount).Error
	})
	g.Go(func() error {
		return db.Model(&domain.Review{}).Where("status = ?", domain.ReviewPending).Count(&out.PendingReviews).Error
	})
	if err := g.Wait(); err != nil {
		return handleError(c, err)
	}

	out.Revenue = decimal.Sum(decimal.Zero, totals...)
	out.OrderValueStats = summarizeOrderValues(totals)
	return ok(c, out)
}

// summarizeOrderValues expects values sorted ascending.
func summarizeOrderValues(values []decimal.Decimal) orderValueStats {
	s := orderValueStats{Count: len(values)}
	if len(values) == 0 {
		return s
	}
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		data = append(data, v.InexactFloat64())
	}
	if mean, err := data.Mean(); err == nil {
		s.Mean = decimal.NewFromFloat(mean).Round(2)
	}
	if median, err := data.Median(); err == nil {
		s.Median = decimal.NewFromFloat(median).Round(2)
	}
	if p90, err := data.Percentile(90); err == nil {
		s.P90 = decimal.NewFromFloat(p90).Round(2)
	}
	s.Max = values[len(values)-1]
	return s
}
