package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/catalog"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

var errReviewNotFound = echo.NewHTTPError(http.StatusNotFound, "review not found")

type moderatePayload struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED PENDING"`
}

type adminReview struct {
	domain.Review
	Author      string `json:"author"`
	AuthorEmail string `json:"author_email"`
	ProductName string `json:"product_name"`
}

func registerReviewRoutes() {
	webserver.AdminGET("/reviews", listReviews)
	webserver.AdminPUT("/reviews/:id", moderateReview)
	webserver.AdminDELETE("/reviews/:id", deleteReview)
}

// listReviews defaults to the moderation queue.
func listReviews(c echo.Context) error {
	page, pageSize := parsePagination(c)
	status := strings.ToUpper(c.QueryParam("status"))
	if status == "" {
		status = domain.ReviewPending
	}
	query := GetDB(c).Model(&domain.Review{})
	if status != "ALL" {
		query = query.Where("review.status = ?", status)
	}
	if pid := c.QueryParam("product_id"); pid != "" {
		query = query.Where("review.product_id = ?", pid)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return handleError(c, err)
	}
	rows := []adminReview{}
	err := query.Select("review.*, users.name AS author, users.email AS author_email, product.name AS product_name").
		Joins("JOIN users ON users.id = review.user_id").
		Joins("JOIN product ON product.id = review.product_id").
		Order("review.created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

// moderateReview publishes or hides a review and refreshes the product's
// rating in the same transaction.
func moderateReview(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	var payload moderatePayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	var review domain.Review
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errReviewNotFound
			}
			return err
		}
		if err := tx.Model(&review).Update("status", payload.Status).Error; err != nil {
			return err
		}
		return catalog.RecomputeRating(tx, review.ProductID)
	})
	if err != nil {
		return handleError(c, err)
	}
	review.Status = payload.Status
	audit(c, "review.moderate", fmt.Sprintf("review %d -> %s", id, payload.Status))
	return ok(c, review)
}

func deleteReview(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		var review domain.Review
		if err := tx.First(&review, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errReviewNotFound
			}
			return err
		}
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		return catalog.RecomputeRating(tx, review.ProductID)
	})
	if err != nil {
		return handleError(c, err)
	}
	audit(c, "review.delete", fmt.Sprintf("deleted review %d", id))
	return c.NoContent(http.StatusNoContent)
}
