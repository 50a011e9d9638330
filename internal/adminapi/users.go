package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
	"github.com/hvacmart/storefront/pkg/common"
)

type userUpdatePayload struct {
	Role   string `json:"role" validate:"omitempty,oneof=CUSTOMER ADMIN"`
	Status string `json:"status" validate:"omitempty,oneof=enabled disabled"`
}

func registerUserRoutes() {
	webserver.AdminGET("/users", listUsers)
	webserver.AdminGET("/users/:id", getUser)
	webserver.AdminPUT("/users/:id", updateUser)
}

func listUsers(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c)
	query := db.Model(&domain.User{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		pattern := "%" + q + "%"
		query = query.Where(likeClause(db, "name")+" OR "+likeClause(db, "email")+" OR phone LIKE ?", pattern, pattern, pattern)
	}
	if role := strings.ToUpper(c.QueryParam("role")); role != "" {
		query = query.Where("role = ?", role)
	}
	if status := strings.ToLower(c.QueryParam("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return handleError(c, err)
	}
	var rows []domain.User
	err := query.Order(sortClause(c, map[string]string{
		"name":       "name",
		"email":      "email",
		"created_at": "created_at",
		"last_login": "last_login",
	}, "id")).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

func getUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	var user domain.User
	if err := GetDB(c).First(&user, id).Error; err != nil {
		return handleError(c, err)
	}
	return ok(c, user)
}

// updateUser changes role or status. Admins cannot demote or disable
// themselves.
func updateUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	var payload userUpdatePayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	if id == webserver.CurrentUserID(c) &&
		((payload.Role != "" && payload.Role != domain.RoleAdmin) || payload.Status == common.DISABLED) {
		return fail(c, http.StatusBadRequest, "SELF_LOCKOUT", "you cannot demote or disable your own account", nil)
	}
	updates := map[string]interface{}{}
	if payload.Role != "" {
		updates["role"] = payload.Role
	}
	if payload.Status != "" {
		updates["status"] = payload.Status
	}
	if len(updates) == 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION_FAILED", "nothing to update", nil)
	}

	db := GetDB(c)
	res := db.Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return handleError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
	}
	audit(c, "user.update", fmt.Sprintf("user %d role=%s status=%s", id, payload.Role, payload.Status))
	return getUser(c)
}
