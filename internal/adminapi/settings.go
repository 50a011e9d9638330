package adminapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hvacmart/storefront/internal/app"
	"github.com/hvacmart/storefront/internal/webserver"
)

func registerSettingsRoutes() {
	webserver.AdminGET("/settings", listSettings)
	webserver.AdminPUT("/settings", saveSettings)
}

func listSettings(c echo.Context) error {
	return ok(c, GetAppContext(c).ConfigMgr().All())
}

// saveSettings takes {"checkout.FreeShippingThreshold": "5000", ...}. The
// whole batch is rejected when any key is unknown or any value does not fit
// its type.
func saveSettings(c echo.Context) error {
	var payload map[string]string
	if err := c.Bind(&payload); err != nil {
		return handleError(c, err)
	}
	if len(payload) == 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "no settings given", nil)
	}
	appCtx := GetAppContext(c)
	if err := appCtx.SaveSettings(payload); err != nil {
		if errors.Is(err, app.ErrUnknownSetting) {
			return fail(c, http.StatusBadRequest, "UNKNOWN_SETTING", err.Error(), nil)
		}
		if errors.Is(err, app.ErrInvalidSetting) {
			return fail(c, http.StatusBadRequest, "INVALID_SETTING", err.Error(), nil)
		}
		return handleError(c, err)
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	audit(c, "settings.update", "updated "+strings.Join(keys, ", "))
	return ok(c, appCtx.ConfigMgr().All())
}
