package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/app"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func ok(c echo.Context, data interface{}) error {
	return webserver.Ok(c, data)
}

func created(c echo.Context, data interface{}) error {
	return webserver.Created(c, data)
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return webserver.Paged(c, data, total, page, pageSize)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return webserver.Fail(c, status, code, message, details)
}

func handleError(c echo.Context, err error) error {
	return webserver.HandleError(c, err)
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

// parsePagination accepts perPage from the admin UI and pageSize from scripts.
func parsePagination(c echo.Context) (page, pageSize int) {
	page = cast.ToInt(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize = cast.ToInt(c.QueryParam("perPage"))
	if pageSize < 1 {
		pageSize = cast.ToInt(c.QueryParam("pageSize"))
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := cast.ToInt64E(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// sortClause maps the requested sort field through allowed, using fallback
// for anything else. Direction defaults to DESC.
func sortClause(c echo.Context, allowed map[string]string, fallback string) string {
	col, found := allowed[strings.TrimSpace(c.QueryParam("sort"))]
	if !found {
		col = fallback
	}
	dir := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if dir != "ASC" {
		dir = "DESC"
	}
	return col + " " + dir
}

// parseDateParam reads a loosely formatted date query parameter in the
// store's time zone.
func parseDateParam(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	return parseDate(raw, name)
}

func parseDate(raw, name string) (*time.Time, error) {
	t, err := dateparse.ParseIn(raw, time.Local)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &t, nil
}

// inclusiveEnd turns a date-only upper bound into the start of the next day.
func inclusiveEnd(t time.Time) time.Time {
	if t.Equal(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())) {
		return t.AddDate(0, 0, 1)
	}
	return t
}

// likeClause builds a case-insensitive contains condition for column.
func likeClause(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return column + " ILIKE ?"
	}
	return "LOWER(" + column + ") LIKE LOWER(?)"
}

// audit records an operator action in sys_opr_log. Failures are only logged.
func audit(c echo.Context, action, desc string) {
	operator := ""
	if claims := webserver.CurrentUser(c); claims != nil {
		operator = claims.Subject
		if operator == "" {
			operator = cast.ToString(claims.UserID)
		}
	}
	entry := domain.SysOprLog{
		OprName:   operator,
		OprIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}
	if err := GetDB(c).Create(&entry).Error; err != nil {
		zap.L().Warn("write audit log", zap.String("namespace", "admin"), zap.Error(err))
	}
}
