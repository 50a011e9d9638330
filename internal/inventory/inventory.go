// Package inventory holds the stock mutations shared by checkout and the
// back-office. Every function is a single conditional UPDATE so concurrent
// callers cannot push reserved_quantity above stock_quantity or either below
// zero; callers run them inside their own transaction.
package inventory

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrReservationLost   = errors.New("reserved stock does not cover the order")
	ErrInvalidAdjustment = errors.New("adjustment would leave stock below reserved quantity")
)

// Reserve earmarks qty units of productID for a pending order.
func Reserve(tx *gorm.DB, productID int64, qty int) error {
	res := tx.Model(&domain.Inventory{}).
		Where("product_id = ? AND stock_quantity - reserved_quantity >= ?", productID, qty).
		Update("reserved_quantity", gorm.Expr("reserved_quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: product %d", ErrInsufficientStock, productID)
	}
	return nil
}

// Release returns qty reserved units of productID to the available pool.
func Release(tx *gorm.DB, productID int64, qty int) error {
	res := tx.Model(&domain.Inventory{}).
		Where("product_id = ? AND reserved_quantity >= ?", productID, qty).
		Update("reserved_quantity", gorm.Expr("reserved_quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: product %d", ErrReservationLost, productID)
	}
	return nil
}

// Commit converts qty reserved units of productID into sold units.
func Commit(tx *gorm.DB, productID int64, qty int) error {
	res := tx.Model(&domain.Inventory{}).
		Where("product_id = ? AND reserved_quantity >= ? AND stock_quantity >= ?", productID, qty, qty).
		Updates(map[string]interface{}{
			"stock_quantity":    gorm.Expr("stock_quantity - ?", qty),
			"reserved_quantity": gorm.Expr("reserved_quantity - ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: product %d", ErrReservationLost, productID)
	}
	return nil
}

// Restock puts qty previously sold units of productID back on hand.
func Restock(tx *gorm.DB, productID int64, qty int) error {
	return tx.Model(&domain.Inventory{}).
		Where("product_id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty)).Error
}

// Adjust changes on-hand stock by delta, refusing to drop below reserved.
// A missing inventory row is created for positive deltas.
func Adjust(tx *gorm.DB, productID int64, delta int) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := tx.Where("product_id = ?", productID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if delta < 0 {
			return nil, ErrInvalidAdjustment
		}
		inv = domain.Inventory{ProductID: productID, StockQuantity: delta, LowStockThreshold: 5}
		if err := tx.Create(&inv).Error; err != nil {
			return nil, err
		}
		return &inv, nil
	}
	if err != nil {
		return nil, err
	}

	res := tx.Model(&domain.Inventory{}).
		Where("product_id = ? AND stock_quantity + ? >= reserved_quantity AND stock_quantity + ? >= 0", productID, delta, delta).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, ErrInvalidAdjustment
	}
	if err := tx.Where("product_id = ?", productID).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}
