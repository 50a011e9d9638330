package order

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
)

// Filter narrows order listings. Zero fields are ignored.
type Filter struct {
	UserID  int64
	Status  string
	OrderNo string // prefix match
	From    *time.Time
	To      *time.Time
}

// Repository is the read side of orders.
type Repository interface {
	// GetByID loads an order with its items
	GetByID(ctx context.Context, id int64) (*domain.Order, error)

	// GetForUser loads an order only when it belongs to userID
	GetForUser(ctx context.Context, id, userID int64) (*domain.Order, error)

	// List returns one page of orders, newest first, and the total count
	List(ctx context.Context, filter Filter, page, pageSize int) ([]*domain.Order, int64, error)

	// GetExpired returns ONLINE orders still pending after now
	GetExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)

	// PaymentsForOrder returns the payment attempts of an order
	PaymentsForOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error)
}

// GormRepository is the GORM implementation of Repository
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	return &o, err
}

func (r *GormRepository) GetForUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	return &o, err
}

func (r *GormRepository) List(ctx context.Context, filter Filter, page, pageSize int) ([]*domain.Order, int64, error) {
	var orders []*domain.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Order{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no LIKE ?", filter.OrderNo+"%")
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	err := query.Preload("Items").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&orders).Error
	return orders, total, err
}

func (r *GormRepository) GetExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_method = ?", domain.OrderPending, domain.PayOnline).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *GormRepository) PaymentsForOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}
