// Package storeapi serves the customer facing JSON API under /api.
package storeapi

import "github.com/hvacmart/storefront/internal/app"

// Init registers every storefront route on the web server. webserver.Init
// must have been called first.
func Init(appCtx app.AppContext) {
	registerAuthRoutes(appCtx.Config().Web.AuthRate)
	registerCatalogRoutes()
	registerReviewRoutes()
	registerCartRoutes()
	registerWishlistRoutes()
	registerAddressRoutes()
	registerCheckoutRoutes()
	registerOrderRoutes()
	registerPaymentRoutes()
	registerWebhookRoutes()
	registerDiagnosticsRoutes()
}
