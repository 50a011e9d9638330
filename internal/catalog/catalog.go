package catalog

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Filter narrows product listings. Zero values mean "any".
type Filter struct {
	Category  string // id or slug
	Brand     string
	Query     string
	Tonnage   string
	MinRating int // minimum energy star rating
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	InStock   bool
	Status    string // empty means ACTIVE, "ALL" disables the filter
	Sort      string
}

var sortColumns = map[string]string{
	"newest":     "product.created_at DESC",
	"price_asc":  "product.price ASC",
	"price_desc": "product.price DESC",
	"rating":     "product.rating DESC",
	"name":       "product.name ASC",
}

// List returns one page of products and the total match count.
func List(ctx context.Context, db *gorm.DB, f Filter, page, pageSize int) ([]domain.Product, int64, error) {
	query := db.WithContext(ctx).Model(&domain.Product{})

	switch f.Status {
	case "":
		query = query.Where("product.status = ?", domain.ProductActive)
	case "ALL":
	default:
		query = query.Where("product.status = ?", f.Status)
	}
	if f.Category != "" {
		if id, err := cast.ToInt64E(f.Category); err == nil {
			query = query.Where("product.category_id = ?", id)
		} else {
			query = query.Where("product.category_id IN (?)",
				db.Model(&domain.Category{}).Select("id").Where("slug = ?", f.Category))
		}
	}
	if f.Brand != "" {
		query = query.Where("LOWER(product.brand) = ?", strings.ToLower(f.Brand))
	}
	if f.Tonnage != "" {
		query = query.Where("product.tonnage = ?", f.Tonnage)
	}
	if f.MinRating > 0 {
		query = query.Where("product.energy_rating >= ?", f.MinRating)
	}
	if f.MinPrice != nil {
		query = query.Where("product.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("product.price <= ?", *f.MaxPrice)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		if db.Dialector.Name() == "postgres" {
			like := "%" + q + "%"
			query = query.Where("product.name ILIKE ? OR product.sku ILIKE ? OR product.brand ILIKE ?", like, like, like)
		} else {
			like := "%" + strings.ToLower(q) + "%"
			query = query.Where("LOWER(product.name) LIKE ? OR LOWER(product.sku) LIKE ? OR LOWER(product.brand) LIKE ?", like, like, like)
		}
	}
	if f.InStock {
		query = query.Where("product.id IN (?)",
			db.Model(&domain.Inventory{}).Select("product_id").Where("stock_quantity - reserved_quantity > 0"))
	}

	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := sortColumns[f.Sort]
	if !ok {
		order = sortColumns["newest"]
	}
	var rows []domain.Product
	err := query.Preload("Inventory").
		Order(order).
		Order("product.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Find loads a product by numeric id or slug. Only ACTIVE products are
// returned unless includeInactive is set.
func Find(ctx context.Context, db *gorm.DB, ref string, includeInactive bool) (*domain.Product, error) {
	query := db.WithContext(ctx).Preload("Inventory")
	if id, err := cast.ToInt64E(ref); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("slug = ?", ref)
	}
	if !includeInactive {
		query = query.Where("status = ?", domain.ProductActive)
	}
	var p domain.Product
	err := query.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RecomputeRating refreshes the cached rating and review count of a
// product from its approved reviews.
func RecomputeRating(tx *gorm.DB, productID int64) error {
	var agg struct {
		Count int64
		Avg   *float64
	}
	err := tx.Model(&domain.Review{}).
		Select("COUNT(*) AS count, AVG(rating) AS avg").
		Where("product_id = ? AND status = ?", productID, domain.ReviewApproved).
		Scan(&agg).Error
	if err != nil {
		return err
	}
	rating := 0.0
	if agg.Avg != nil {
		rating = math.Round(*agg.Avg*10) / 10
	}
	return tx.Model(&domain.Product{}).Where("id = ?", productID).Updates(map[string]interface{}{
		"rating":       rating,
		"review_count": agg.Count,
	}).Error
}
