package adminapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

func registerOprlogRoutes() {
	webserver.AdminGET("/oprlogs", listOprlogs)
}

// listOprlogs pages through the audit trail, newest first. action matches by
// prefix so "coupon." lists every coupon change.
func listOprlogs(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c)
	query := db.Model(&domain.SysOprLog{})
	if action := strings.TrimSpace(c.QueryParam("action")); action != "" {
		query = query.Where("opt_action LIKE ?", action+"%")
	}
	if operator := strings.TrimSpace(c.QueryParam("operator")); operator != "" {
		query = query.Where("opr_name = ?", operator)
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		query = query.Where(likeClause(db, "opt_desc"), "%"+q+"%")
	}
	from, err := parseDateParam(c, "from")
	if err != nil {
		return handleError(c, err)
	}
	if from != nil {
		query = query.Where("opt_time >= ?", *from)
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return handleError(c, err)
	}
	if to != nil {
		query = query.Where("opt_time < ?", inclusiveEnd(*to))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return handleError(c, err)
	}
	var rows []domain.SysOprLog
	err = query.Order("opt_time DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}
