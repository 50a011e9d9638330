package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/hvacmart/storefront/internal/catalog"
	"github.com/hvacmart/storefront/internal/checkout"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

type productDetail struct {
	*domain.Product
	Available int                 `json:"available"`
	InStock   bool                `json:"in_stock"`
	EmiPlans  []checkout.EmiQuote `json:"emi_plans"`
}

func registerCatalogRoutes() {
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:ref", getProduct)
}

func listCategories(c echo.Context) error {
	var rows []domain.Category
	if err := GetDB(c).Order("name ASC").Find(&rows).Error; err != nil {
		return handleError(c, err)
	}
	return ok(c, rows)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filter := catalog.Filter{
		Category:  c.QueryParam("category"),
		Brand:     c.QueryParam("brand"),
		Query:     c.QueryParam("q"),
		Tonnage:   c.QueryParam("tonnage"),
		MinRating: cast.ToInt(c.QueryParam("energy_rating")),
		InStock:   cast.ToBool(c.QueryParam("in_stock")),
		Sort:      c.QueryParam("sort"),
	}
	var err error
	if filter.MinPrice, err = decimalParam(c, "min_price"); err != nil {
		return handleError(c, err)
	}
	if filter.MaxPrice, err = decimalParam(c, "max_price"); err != nil {
		return handleError(c, err)
	}

	rows, total, err := catalog.List(c.Request().Context(), GetAppContext(c).DB(), filter, page, pageSize)
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

// getProduct accepts an id or a slug and adds stock and EMI offers.
func getProduct(c echo.Context) error {
	p, err := catalog.Find(c.Request().Context(), GetAppContext(c).DB(), c.Param("ref"), false)
	if err != nil {
		return handleError(c, err)
	}

	detail := productDetail{Product: p, EmiPlans: []checkout.EmiQuote{}}
	if p.Inventory != nil {
		detail.Available = p.Inventory.Available()
		detail.InStock = detail.Available > 0
	}
	var plans []domain.EmiPlan
	if err := GetDB(c).Where("active = ?", true).Order("tenure_months ASC").Find(&plans).Error; err != nil {
		return handleError(c, err)
	}
	detail.EmiPlans = checkout.Quotes(p.Price, plans)
	return ok(c, detail)
}

// decimalParam parses an optional decimal query parameter.
func decimalParam(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &d, nil
}
