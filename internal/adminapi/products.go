package adminapi

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/catalog"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

type productPayload struct {
	Sku               string          `json:"sku" validate:"required,max=64"`
	Name              string          `json:"name" validate:"required,min=1,max=200"`
	Slug              string          `json:"slug" validate:"omitempty,max=220"`
	Brand             string          `json:"brand" validate:"max=100"`
	CategoryID        int64           `json:"category_id" validate:"gte=0"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	Mrp               decimal.Decimal `json:"mrp"`
	Tonnage           string          `json:"tonnage" validate:"max=16"`
	EnergyRating      int             `json:"energy_rating" validate:"min=0,max=5"`
	Image             string          `json:"image" validate:"max=1024"`
	Status            string          `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Stock             *int            `json:"stock" validate:"omitempty,min=0"`
	LowStockThreshold *int            `json:"low_stock_threshold" validate:"omitempty,min=0"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// normalize trims the payload and checks the price fields.
func (p *productPayload) normalize() error {
	p.Sku = strings.ToUpper(strings.TrimSpace(p.Sku))
	p.Name = strings.TrimSpace(p.Name)
	p.Slug = slugify(p.Slug)
	if p.Slug == "" {
		p.Slug = slugify(p.Name)
	}
	if p.Status == "" {
		p.Status = domain.ProductActive
	}
	if !p.Price.IsPositive() {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be positive")
	}
	if p.Mrp.IsZero() {
		p.Mrp = p.Price
	}
	if p.Mrp.LessThan(p.Price) {
		return echo.NewHTTPError(http.StatusBadRequest, "mrp must not be below price")
	}
	return nil
}

func registerProductRoutes() {
	webserver.AdminGET("/products", listProducts)
	webserver.AdminGET("/products/:id", getProduct)
	webserver.AdminPOST("/products", createProduct)
	webserver.AdminPUT("/products/:id", updateProduct)
	webserver.AdminDELETE("/products/:id", deleteProduct)
}

// listProducts shows inactive products too unless status is given.
func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	status := strings.ToUpper(c.QueryParam("status"))
	if status == "" {
		status = "ALL"
	}
	filter := catalog.Filter{
		Category: c.QueryParam("category"),
		Brand:    c.QueryParam("brand"),
		Query:    strings.TrimSpace(c.QueryParam("q")),
		Status:   status,
		Sort:     c.QueryParam("sort"),
	}
	rows, total, err := catalog.List(c.Request().Context(), GetAppContext(c).DB(), filter, page, pageSize)
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	if _, err := parseIDParam(c, "id"); err != nil {
		return handleError(c, err)
	}
	p, err := catalog.Find(c.Request().Context(), GetAppContext(c).DB(), c.Param("id"), true)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	if err := payload.normalize(); err != nil {
		return handleError(c, err)
	}

	p := domain.Product{
		Sku:          payload.Sku,
		Name:         payload.Name,
		Slug:         payload.Slug,
		Brand:        strings.TrimSpace(payload.Brand),
		CategoryID:   payload.CategoryID,
		Description:  payload.Description,
		Price:        payload.Price,
		Mrp:          payload.Mrp,
		Tonnage:      payload.Tonnage,
		EnergyRating: payload.EnergyRating,
		Image:        strings.TrimSpace(payload.Image),
		Status:       payload.Status,
	}
	inv := domain.Inventory{LowStockThreshold: int(GetAppContext(c).GetSettingsInt64Value("inventory", "DefaultLowStockThreshold"))}
	if payload.Stock != nil {
		inv.StockQuantity = *payload.Stock
	}
	if payload.LowStockThreshold != nil {
		inv.LowStockThreshold = *payload.LowStockThreshold
	}

	err := GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := checkCategory(tx, p.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		inv.ProductID = p.ID
		return tx.Create(&inv).Error
	})
	if err != nil {
		return handleError(c, err)
	}
	p.Inventory = &inv
	audit(c, "product.create", fmt.Sprintf("created product %s (%d)", p.Sku, p.ID))
	return created(c, p)
}

// updateProduct replaces the product fields. Stock is changed through the
// inventory endpoints only.
func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	var payload productPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	if err := payload.normalize(); err != nil {
		return handleError(c, err)
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := checkCategory(tx, payload.CategoryID); err != nil {
			return err
		}
		res := tx.Model(&domain.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
			"sku":           payload.Sku,
			"name":          payload.Name,
			"slug":          payload.Slug,
			"brand":         strings.TrimSpace(payload.Brand),
			"category_id":   payload.CategoryID,
			"description":   payload.Description,
			"price":         payload.Price,
			"mrp":           payload.Mrp,
			"tonnage":       payload.Tonnage,
			"energy_rating": payload.EnergyRating,
			"image":         strings.TrimSpace(payload.Image),
			"status":        payload.Status,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return catalog.ErrProductNotFound
		}
		if payload.LowStockThreshold != nil {
			return tx.Model(&domain.Inventory{}).Where("product_id = ?", id).
				Update("low_stock_threshold", *payload.LowStockThreshold).Error
		}
		return nil
	})
	if err != nil {
		return handleError(c, err)
	}
	if payload.Status == domain.ProductInactive {
		// inactive products cannot be bought, drop them from carts
		GetDB(c).Where("product_id = ?", id).Delete(&domain.CartItem{})
	}
	audit(c, "product.update", fmt.Sprintf("updated product %s (%d)", payload.Sku, id))
	return getProduct(c)
}

// deleteProduct removes a product that was never ordered. Ordered products
// are deactivated instead so order history keeps its references.
func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	deactivated := false
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		var p domain.Product
		if err := tx.Select("id").First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrProductNotFound
			}
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.WishlistItem{}).Error; err != nil {
			return err
		}

		var ordered int64
		if err := tx.Model(&domain.OrderItem{}).Where("product_id = ?", id).Count(&ordered).Error; err != nil {
			return err
		}
		if ordered > 0 {
			deactivated = true
			return tx.Model(&domain.Product{}).Where("id = ?", id).Update("status", domain.ProductInactive).Error
		}
		for _, model := range []interface{}{&domain.Review{}, &domain.Inventory{}} {
			if err := tx.Where("product_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&domain.Product{}, id).Error
	})
	if err != nil {
		return handleError(c, err)
	}
	if deactivated {
		audit(c, "product.deactivate", fmt.Sprintf("deactivated ordered product %d", id))
		return ok(c, map[string]interface{}{"id": id, "status": domain.ProductInactive})
	}
	audit(c, "product.delete", fmt.Sprintf("deleted product %d", id))
	return c.NoContent(http.StatusNoContent)
}

func checkCategory(tx *gorm.DB, categoryID int64) error {
	if categoryID == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&domain.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown category")
	}
	return nil
}
