package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/pkg/common"
)

// NewDB opens a private in-memory sqlite database with the full schema.
// A single connection is used so concurrent transactions serialize the way
// row locks would on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, common.UUIDint64())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	hash, err := common.HashPassword("password123")
	require.NoError(t, err)
	u := &domain.User{
		Name:         strings.Split(email, "@")[0],
		Email:        email,
		Phone:        "9800000000",
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		Status:       common.ENABLED,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateAdmin(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	u := CreateUser(t, db, email)
	require.NoError(t, db.Model(u).Update("role", domain.RoleAdmin).Error)
	u.Role = domain.RoleAdmin
	return u
}

// CreateProduct inserts an active product with stock units on hand.
func CreateProduct(t *testing.T, db *gorm.DB, sku, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Sku:    sku,
		Name:   "Product " + sku,
		Slug:   strings.ToLower(sku),
		Brand:  "Voltas",
		Price:  decimal.RequireFromString(price),
		Mrp:    decimal.RequireFromString(price),
		Status: domain.ProductActive,
	}
	require.NoError(t, db.Create(p).Error)
	require.NoError(t, db.Create(&domain.Inventory{ProductID: p.ID, StockQuantity: stock, LowStockThreshold: 2}).Error)
	return p
}

func CreateAddress(t *testing.T, db *gorm.DB, userID int64) *domain.Address {
	t.Helper()
	a := &domain.Address{
		UserID:    userID,
		Name:      "Asha",
		Phone:     "9811111111",
		Line1:     "12 MG Road",
		City:      "Pune",
		State:     "Maharashtra",
		Pincode:   "411001",
		IsDefault: true,
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

func AddToCart(t *testing.T, db *gorm.DB, userID, productID int64, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&domain.CartItem{UserID: userID, ProductID: productID, Quantity: qty}).Error)
}

func GetInventory(t *testing.T, db *gorm.DB, productID int64) domain.Inventory {
	t.Helper()
	var inv domain.Inventory
	require.NoError(t, db.Where("product_id = ?", productID).First(&inv).Error)
	return inv
}
