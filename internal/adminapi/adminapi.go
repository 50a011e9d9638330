// Package adminapi serves the back-office JSON API under /api/admin. Every
// route requires an active ADMIN account.
package adminapi

// Init registers every back-office route on the web server. webserver.Init
// must have been called first.
func Init() {
	registerDashboardRoutes()
	registerProductRoutes()
	registerCategoryRoutes()
	registerInventoryRoutes()
	registerOrderRoutes()
	registerUserRoutes()
	registerReviewRoutes()
	registerCouponRoutes()
	registerEmiRoutes()
	registerSettingsRoutes()
	registerMetricsRoutes()
	registerOprlogRoutes()
	registerSchedulerRoutes()
}
