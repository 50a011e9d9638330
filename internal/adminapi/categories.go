package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

type categoryPayload struct {
	Name string `json:"name" validate:"required,max=120"`
	Slug string `json:"slug" validate:"omitempty,max=140"`
}

func registerCategoryRoutes() {
	webserver.AdminPOST("/categories", createCategory)
	webserver.AdminPUT("/categories/:id", updateCategory)
	webserver.AdminDELETE("/categories/:id", deleteCategory)
}

func (p *categoryPayload) slug() string {
	if s := slugify(p.Slug); s != "" {
		return s
	}
	return slugify(p.Name)
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	cat := domain.Category{Name: strings.TrimSpace(payload.Name), Slug: payload.slug()}
	if err := GetDB(c).Create(&cat).Error; err != nil {
		return handleError(c, err)
	}
	audit(c, "category.create", fmt.Sprintf("created category %s", cat.Slug))
	return created(c, cat)
}

func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	var payload categoryPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	db := GetDB(c)
	res := db.Model(&domain.Category{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name": strings.TrimSpace(payload.Name),
		"slug": payload.slug(),
	})
	if res.Error != nil {
		return handleError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "category not found", nil)
	}
	var cat domain.Category
	if err := db.First(&cat, id).Error; err != nil {
		return handleError(c, err)
	}
	return ok(c, cat)
}

// deleteCategory refuses while products still point at the category.
func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	db := GetDB(c)
	var used int64
	if err := db.Model(&domain.Product{}).Where("category_id = ?", id).Count(&used).Error; err != nil {
		return handleError(c, err)
	}
	if used > 0 {
		return fail(c, http.StatusConflict, "CATEGORY_IN_USE", fmt.Sprintf("%d products use this category", used), nil)
	}
	res := db.Delete(&domain.Category{}, id)
	if res.Error != nil {
		return handleError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "category not found", nil)
	}
	audit(c, "category.delete", fmt.Sprintf("deleted category %d", id))
	return c.NoContent(http.StatusNoContent)
}
