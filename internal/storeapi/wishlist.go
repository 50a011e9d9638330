package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hvacmart/storefront/internal/catalog"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

type wishlistRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

var errNotInWishlist = echo.NewHTTPError(http.StatusNotFound, "product is not in the wishlist")

func registerWishlistRoutes() {
	webserver.AuthGET("/wishlist", listWishlist)
	webserver.AuthPOST("/wishlist", addWishlistItem)
	webserver.AuthDELETE("/wishlist/:productId", removeWishlistItem)
	webserver.AuthPOST("/wishlist/:productId/move-to-cart", moveWishlistItemToCart)
}

func listWishlist(c echo.Context) error {
	var items []domain.WishlistItem
	err := GetDB(c).Preload("Product.Inventory").
		Where("user_id = ?", currentUserID(c)).
		Order("id DESC").
		Find(&items).Error
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, items)
}

// addWishlistItem is idempotent: adding a saved product again is a no-op.
func addWishlistItem(c echo.Context) error {
	var req wishlistRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	p, err := catalog.Find(c.Request().Context(), GetAppContext(c).DB(), idString(req.ProductID), false)
	if err != nil {
		return handleError(c, err)
	}
	item := domain.WishlistItem{UserID: currentUserID(c), ProductID: p.ID}
	err = GetDB(c).Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error
	if err != nil {
		return handleError(c, err)
	}
	return listWishlist(c)
}

func removeWishlistItem(c echo.Context) error {
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		return handleError(c, err)
	}
	res := GetDB(c).Where("user_id = ? AND product_id = ?", currentUserID(c), productID).Delete(&domain.WishlistItem{})
	if res.Error != nil {
		return handleError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return handleError(c, errNotInWishlist)
	}
	return listWishlist(c)
}

// moveWishlistItemToCart drops the product from the wishlist and adds one
// unit to the cart in one transaction.
func moveWishlistItemToCart(c echo.Context) error {
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		return handleError(c, err)
	}
	uid := currentUserID(c)
	if _, err := catalog.Find(c.Request().Context(), GetAppContext(c).DB(), idString(productID), false); err != nil {
		return handleError(c, err)
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND product_id = ?", uid, productID).Delete(&domain.WishlistItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNotInWishlist
		}
		item := domain.CartItem{UserID: uid, ProductID: productID, Quantity: 1}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("cart_item.quantity + 1")}),
		}).Create(&item).Error
	})
	if err != nil {
		return handleError(c, err)
	}
	return getCart(c)
}
