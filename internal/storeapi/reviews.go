package storeapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/catalog"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

type reviewRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Title  string `json:"title" validate:"max=200"`
	Body   string `json:"body" validate:"max=4000"`
}

// reviewView is a published review with its author's display name.
type reviewView struct {
	domain.Review
	Author string `json:"author"`
}

func registerReviewRoutes() {
	webserver.ApiGET("/products/:id/reviews", listProductReviews)
	webserver.AuthPOST("/products/:id/reviews", createReview)
}

func listProductReviews(c echo.Context) error {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	page, pageSize := parsePagination(c)
	db := GetDB(c)

	base := db.Model(&domain.Review{}).Where("review.product_id = ? AND review.status = ?", productID, domain.ReviewApproved).
		Session(&gorm.Session{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return handleError(c, err)
	}
	var rows []reviewView
	err = base.Select("review.*, users.name AS author").
		Joins("JOIN users ON users.id = review.user_id").
		Order("review.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

// createReview stores one review per customer and product. Reviews wait for
// moderation unless review.AutoApprove is set.
func createReview(c echo.Context) error {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	var req reviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	appCtx := GetAppContext(c)
	if _, err := catalog.Find(c.Request().Context(), appCtx.DB(), c.Param("id"), false); err != nil {
		return handleError(c, err)
	}

	review := &domain.Review{
		ProductID: productID,
		UserID:    currentUserID(c),
		Rating:    req.Rating,
		Title:     req.Title,
		Body:      req.Body,
		Status:    domain.ReviewPending,
	}
	if appCtx.GetSettingsBoolValue("review", "AutoApprove") {
		review.Status = domain.ReviewApproved
	}
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		if review.Status == domain.ReviewApproved {
			return catalog.RecomputeRating(tx, productID)
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fail(c, http.StatusConflict, "REVIEW_EXISTS", "you have already reviewed this product", nil)
	}
	if err != nil {
		return handleError(c, err)
	}
	return created(c, review)
}
