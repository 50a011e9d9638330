package storeapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hvacmart/storefront/internal/catalog"
	"github.com/hvacmart/storefront/internal/checkout"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/inventory"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/webserver"
)

const maxLineQuantity = 10

type cartAddRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"omitempty,min=1,max=10"`
}

type cartUpdateRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=10"`
}

type cartView struct {
	Items   []domain.CartItem `json:"items"`
	Summary *checkout.Summary `json:"summary"`
	Notice  string            `json:"notice,omitempty"`
}

func registerCartRoutes() {
	webserver.AuthGET("/cart", getCart)
	webserver.AuthPOST("/cart", addCartItem)
	webserver.AuthPUT("/cart/:productId", updateCartItem)
	webserver.AuthDELETE("/cart/:productId", removeCartItem)
	webserver.AuthDELETE("/cart", clearCart)
}

// getCart returns the cart lines and, when the cart can be checked out, its
// priced summary. The optional coupon query parameter is applied to it.
func getCart(c echo.Context) error {
	uid := currentUserID(c)
	var items []domain.CartItem
	err := GetDB(c).Preload("Product.Inventory").
		Where("user_id = ?", uid).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return handleError(c, err)
	}

	view := cartView{Items: items}
	if len(items) == 0 {
		return ok(c, view)
	}
	quote, err := GetAppContext(c).Orders().Preview(c.Request().Context(), uid, nil, c.QueryParam("coupon"))
	switch {
	case err == nil:
		view.Summary = &quote.Summary
	case isCheckoutNotice(err):
		view.Notice = err.Error()
	default:
		return handleError(c, err)
	}
	return ok(c, view)
}

// isCheckoutNotice reports errors that make the cart unpriceable without
// making the request fail.
func isCheckoutNotice(err error) bool {
	for _, target := range []error{
		order.ErrProductUnavailable,
		order.ErrCouponNotFound,
		checkout.ErrEmptyCart,
		checkout.ErrCouponInactive,
		checkout.ErrCouponNotStarted,
		checkout.ErrCouponExpired,
		checkout.ErrCouponMinOrder,
		checkout.ErrCouponExhausted,
		checkout.ErrCouponAlreadyUsed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// addCartItem adds quantity units of a product, merging with an existing
// line. The result may not exceed the units currently available.
func addCartItem(c echo.Context) error {
	var req cartAddRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	uid := currentUserID(c)
	db := GetDB(c)

	p, err := catalog.Find(c.Request().Context(), GetAppContext(c).DB(), idString(req.ProductID), false)
	if err != nil {
		return handleError(c, err)
	}

	var existing domain.CartItem
	err = db.Where("user_id = ? AND product_id = ?", uid, p.ID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return handleError(c, err)
	}
	want := existing.Quantity + req.Quantity
	if want > maxLineQuantity {
		return fail(c, http.StatusBadRequest, "INVALID_QUANTITY", "at most 10 units per product", nil)
	}
	if p.Inventory == nil || p.Inventory.Available() < want {
		return handleError(c, inventory.ErrInsufficientStock)
	}

	item := domain.CartItem{UserID: uid, ProductID: p.ID, Quantity: req.Quantity}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("cart_item.quantity + ?", req.Quantity)}),
	}).Create(&item).Error
	if err != nil {
		return handleError(c, err)
	}
	return getCart(c)
}

func updateCartItem(c echo.Context) error {
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		return handleError(c, err)
	}
	var req cartUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	uid := currentUserID(c)
	db := GetDB(c)

	if req.Quantity == 0 {
		return removeCartItem(c)
	}
	var inv domain.Inventory
	if err := db.Where("product_id = ?", productID).First(&inv).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return handleError(c, err)
	}
	if inv.Available() < req.Quantity {
		return handleError(c, inventory.ErrInsufficientStock)
	}
	res := db.Model(&domain.CartItem{}).
		Where("user_id = ? AND product_id = ?", uid, productID).
		Update("quantity", req.Quantity)
	if res.Error != nil {
		return handleError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "product is not in the cart", nil)
	}
	return getCart(c)
}

func removeCartItem(c echo.Context) error {
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		return handleError(c, err)
	}
	res := GetDB(c).Where("user_id = ? AND product_id = ?", currentUserID(c), productID).Delete(&domain.CartItem{})
	if res.Error != nil {
		return handleError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "product is not in the cart", nil)
	}
	return getCart(c)
}

func clearCart(c echo.Context) error {
	if err := GetDB(c).Where("user_id = ?", currentUserID(c)).Delete(&domain.CartItem{}).Error; err != nil {
		return handleError(c, err)
	}
	return ok(c, cartView{Items: []domain.CartItem{}})
}
