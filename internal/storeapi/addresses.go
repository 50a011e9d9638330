package storeapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/webserver"
)

type addressRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	Phone     string `json:"phone" validate:"required,numeric,min=10,max=15"`
	Line1     string `json:"line1" validate:"required,max=255"`
	Line2     string `json:"line2" validate:"max=255"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"required,max=100"`
	Pincode   string `json:"pincode" validate:"required,numeric,len=6"`
	IsDefault bool   `json:"is_default"`
}

func (r addressRequest) apply(a *domain.Address) {
	a.Name = r.Name
	a.Phone = r.Phone
	a.Line1 = r.Line1
	a.Line2 = r.Line2
	a.City = r.City
	a.State = r.State
	a.Pincode = r.Pincode
	a.IsDefault = r.IsDefault
}

func registerAddressRoutes() {
	webserver.AuthGET("/addresses", listAddresses)
	webserver.AuthPOST("/addresses", createAddress)
	webserver.AuthPUT("/addresses/:id", updateAddress)
	webserver.AuthDELETE("/addresses/:id", deleteAddress)
}

func listAddresses(c echo.Context) error {
	var rows []domain.Address
	err := GetDB(c).Where("user_id = ?", currentUserID(c)).
		Order("is_default DESC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, rows)
}

// createAddress makes the first address of a customer the default one.
func createAddress(c echo.Context) error {
	var req addressRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	uid := currentUserID(c)
	addr := domain.Address{UserID: uid}
	req.apply(&addr)

	err := GetDB(c).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Address{}).Where("user_id = ?", uid).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			addr.IsDefault = true
		}
		if addr.IsDefault {
			if err := clearDefaultAddress(tx, uid); err != nil {
				return err
			}
		}
		return tx.Create(&addr).Error
	})
	if err != nil {
		return handleError(c, err)
	}
	return created(c, addr)
}

func updateAddress(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	var req addressRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	uid := currentUserID(c)

	var addr domain.Address
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ?", id, uid).First(&addr).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return order.ErrAddressNotFound
		}
		if err != nil {
			return err
		}
		req.apply(&addr)
		if addr.IsDefault {
			if err := clearDefaultAddress(tx, uid); err != nil {
				return err
			}
		}
		return tx.Save(&addr).Error
	})
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, addr)
}

func deleteAddress(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	res := GetDB(c).Where("id = ? AND user_id = ?", id, currentUserID(c)).Delete(&domain.Address{})
	if res.Error != nil {
		return handleError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return handleError(c, order.ErrAddressNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

func clearDefaultAddress(tx *gorm.DB, userID int64) error {
	return tx.Model(&domain.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}
