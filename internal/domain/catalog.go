package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// money fields are rendered as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	ProductActive   = "ACTIVE"
	ProductInactive = "INACTIVE"
)

// Category groups products, e.g. split ACs, window ACs, air purifiers
type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:120" json:"name"`
	Slug      string    `gorm:"size:140;uniqueIndex" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "category"
}

// Product is a sellable catalog item. Stock lives in Inventory.
type Product struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Sku          string          `gorm:"size:64;uniqueIndex" json:"sku"`
	Name         string          `gorm:"size:200;index" json:"name"`
	Slug         string          `gorm:"size:220;uniqueIndex" json:"slug"`
	Brand        string          `gorm:"size:100;index" json:"brand"`
	CategoryID   int64           `gorm:"index" json:"category_id"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
	Mrp          decimal.Decimal `gorm:"type:numeric(12,2)" json:"mrp"` // list price shown struck through
	Tonnage      string          `gorm:"size:16" json:"tonnage"`        // e.g. "1.5"
	EnergyRating int             `json:"energy_rating"`                 // BEE star rating
	Image        string          `gorm:"size:1024" json:"image"`
	Status       string          `gorm:"size:16;index;default:ACTIVE" json:"status"`
	Rating       float64         `json:"rating"`
	ReviewCount  int             `json:"review_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Inventory *Inventory `gorm:"foreignKey:ProductID" json:"inventory,omitempty"`
}

func (Product) TableName() string {
	return "product"
}

// Inventory keeps on-hand and reserved stock of a product.
// reserved_quantity never exceeds stock_quantity; every write that touches
// either column is a conditional update that preserves this.
type Inventory struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID         int64     `gorm:"uniqueIndex" json:"product_id"`
	StockQuantity     int       `gorm:"default:0" json:"stock_quantity"`
	ReservedQuantity  int       `gorm:"default:0" json:"reserved_quantity"`
	LowStockThreshold int       `gorm:"default:5" json:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Inventory) TableName() string {
	return "inventory"
}

// Available returns the units that can still be reserved.
func (i Inventory) Available() int {
	return i.StockQuantity - i.ReservedQuantity
}

const (
	ReviewPending  = "PENDING"
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

type Review struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"uniqueIndex:idx_review_product_user" json:"product_id"`
	UserID    int64     `gorm:"uniqueIndex:idx_review_product_user" json:"user_id"`
	Rating    int       `json:"rating"`
	Title     string    `gorm:"size:200" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Status    string    `gorm:"size:16;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string {
	return "review"
}

// EmiPlan is a bank installment offer.
type EmiPlan struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Bank         string          `gorm:"size:100" json:"bank"`
	TenureMonths int             `json:"tenure_months"`
	AnnualRate   decimal.Decimal `gorm:"type:numeric(6,2)" json:"annual_rate"` // percent per annum, 0 for no-cost EMI
	MinAmount    decimal.Decimal `gorm:"type:numeric(12,2)" json:"min_amount"`
	Active       bool            `gorm:"default:true" json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (EmiPlan) TableName() string {
	return "emi_plan"
}
