package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/catalog"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/inventory"
	"github.com/hvacmart/storefront/internal/webserver"
)

const maxExportRows = 10000

// inventoryRow is the stock view of one product, also the CSV layout.
type inventoryRow struct {
	ProductID         int64     `json:"product_id" csv:"product_id"`
	Sku               string    `json:"sku" csv:"sku"`
	Name              string    `json:"name" csv:"name"`
	Status            string    `json:"status" csv:"status"`
	StockQuantity     int       `json:"stock_quantity" csv:"stock_quantity"`
	ReservedQuantity  int       `json:"reserved_quantity" csv:"reserved_quantity"`
	Available         int       `json:"available" csv:"available"`
	LowStockThreshold int       `json:"low_stock_threshold" csv:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"updated_at" csv:"updated_at"`
}

type adjustPayload struct {
	Delta  int    `json:"delta" validate:"required,ne=0"`
	Reason string `json:"reason" validate:"required,max=255"`
}

type thresholdPayload struct {
	LowStockThreshold int `json:"low_stock_threshold" validate:"min=0"`
}

func registerInventoryRoutes() {
	webserver.AdminGET("/inventory", listInventory)
	webserver.AdminGET("/inventory/low-stock", listLowStock)
	webserver.AdminGET("/inventory/export", exportInventory)
	webserver.AdminPOST("/inventory/:productId/adjust", adjustInventory)
	webserver.AdminPUT("/inventory/:productId/threshold", updateThreshold)
}

const inventoryColumns = "inventory.product_id, product.sku, product.name, product.status, " +
	"inventory.stock_quantity, inventory.reserved_quantity, " +
	"inventory.stock_quantity - inventory.reserved_quantity AS available, " +
	"inventory.low_stock_threshold, inventory.updated_at"

// inventoryQuery joins stock rows with their products. Callers add the
// column list after counting.
func inventoryQuery(c echo.Context) *gorm.DB {
	db := GetDB(c)
	query := db.Table("inventory").
		Joins("JOIN product ON product.id = inventory.product_id")
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		pattern := "%" + q + "%"
		query = query.Where(likeClause(db, "product.name")+" OR "+likeClause(db, "product.sku"), pattern, pattern)
	}
	return query
}

func lowStock(query *gorm.DB) *gorm.DB {
	return query.Where("inventory.stock_quantity - inventory.reserved_quantity <= inventory.low_stock_threshold")
}

func listInventory(c echo.Context) error {
	page, pageSize := parsePagination(c)
	query := inventoryQuery(c)
	if c.QueryParam("low") == "true" {
		query = lowStock(query)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return handleError(c, err)
	}
	rows := []inventoryRow{}
	err := query.Select(inventoryColumns).Order(sortClause(c, map[string]string{
		"sku":       "product.sku",
		"name":      "product.name",
		"stock":     "inventory.stock_quantity",
		"available": "available",
	}, "inventory.product_id")).Offset((page - 1) * pageSize).Limit(pageSize).Scan(&rows).Error
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

// listLowStock returns every product at or below its threshold, scarcest
// first.
func listLowStock(c echo.Context) error {
	rows := []inventoryRow{}
	err := lowStock(inventoryQuery(c)).
		Select(inventoryColumns).
		Where("product.status = ?", domain.ProductActive).
		Order("available ASC").
		Scan(&rows).Error
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, rows)
}

func exportInventory(c echo.Context) error {
	var rows []*inventoryRow
	if err := inventoryQuery(c).Select(inventoryColumns).Order("product.sku ASC").Limit(maxExportRows).Scan(&rows).Error; err != nil {
		return handleError(c, err)
	}
	return sendCSV(c, fmt.Sprintf("inventory-%s.csv", time.Now().Format("20060102")), &rows)
}

// adjustInventory adds or removes on-hand units, e.g. after a stock count.
// Stock can never drop below what open orders have reserved.
func adjustInventory(c echo.Context) error {
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		return handleError(c, err)
	}
	var payload adjustPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	if _, err := catalog.Find(c.Request().Context(), GetAppContext(c).DB(), c.Param("productId"), true); err != nil {
		return handleError(c, err)
	}

	var inv *domain.Inventory
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		var txErr error
		inv, txErr = inventory.Adjust(tx, productID, payload.Delta)
		return txErr
	})
	if err != nil {
		return handleError(c, err)
	}
	audit(c, "inventory.adjust", fmt.Sprintf("product %d stock %+d: %s", productID, payload.Delta, payload.Reason))
	return ok(c, inv)
}

func updateThreshold(c echo.Context) error {
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		return handleError(c, err)
	}
	var payload thresholdPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	db := GetDB(c)
	res := db.Model(&domain.Inventory{}).Where("product_id = ?", productID).
		Update("low_stock_threshold", payload.LowStockThreshold)
	if res.Error != nil {
		return handleError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return handleError(c, catalog.ErrProductNotFound)
	}
	var inv domain.Inventory
	if err := db.Where("product_id = ?", productID).First(&inv).Error; err != nil {
		return handleError(c, err)
	}
	return ok(c, inv)
}

// sendCSV writes rows (a pointer to a slice of tagged structs) as a CSV
// attachment.
func sendCSV(c echo.Context, filename string, rows interface{}) error {
	data, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return handleError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
