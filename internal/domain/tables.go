package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOprLog{},
	// Catalog
	&Category{},
	&Product{},
	&Inventory{},
	&Review{},
	&EmiPlan{},
	// Customer
	&User{},
	&Address{},
	&CartItem{},
	&WishlistItem{},
	// Orders
	&Order{},
	&OrderItem{},
	&Payment{},
	&Coupon{},
	&CouponUsage{},
	// Shipping
	&ShipmentTracking{},
	&WebhookEvent{},
}
