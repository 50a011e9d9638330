package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hvacmart/storefront/internal/app"
	"github.com/hvacmart/storefront/internal/webserver"
)

// registerSchedulerRoutes exposes the background jobs registered on the
// application cron.
func registerSchedulerRoutes() {
	webserver.AdminGET("/jobs", listJobs)
	webserver.AdminPOST("/jobs/:name/run", runJob)
}

func listJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// runJob starts a job out of schedule. A job that is already running is
// reported with 409 and left alone.
func runJob(c echo.Context) error {
	name := c.Param("name")
	started, err := GetAppContext(c).RunJobNow(name)
	if errors.Is(err, app.ErrUnknownJob) {
		return fail(c, http.StatusNotFound, "JOB_NOT_FOUND", "job not found", nil)
	}
	if err != nil {
		return handleError(c, err)
	}
	if !started {
		return fail(c, http.StatusConflict, "JOB_RUNNING", "job is already running", nil)
	}
	audit(c, "job.run", "triggered "+name)
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"data": map[string]interface{}{"name": name, "started": true},
	})
}
