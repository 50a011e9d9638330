package domain

import "time"

// ShipmentTracking latest known courier state per AWB
type ShipmentTracking struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64      `gorm:"index" json:"order_id"`
	ShipmentID string     `gorm:"size:64" json:"shipment_id"`
	AwbCode    string     `gorm:"size:64;uniqueIndex" json:"awb_code"`
	Courier    string     `gorm:"size:100" json:"courier"`
	Status     string     `gorm:"size:32;index" json:"status"`
	RawStatus  string     `gorm:"size:100" json:"raw_status"`
	Location   string     `gorm:"size:200" json:"location"`
	EventTime  *time.Time `json:"event_time,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (ShipmentTracking) TableName() string {
	return "shipment_tracking"
}

// WebhookEvent raw inbound webhook log
type WebhookEvent struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider   string    `gorm:"size:32;index" json:"provider"`
	EventType  string    `gorm:"size:64" json:"event_type"`
	Reference  string    `gorm:"size:100;index" json:"reference"`
	Verified   bool      `json:"verified"`
	Payload    string    `gorm:"type:text" json:"payload"`
	ReceivedAt time.Time `gorm:"index" json:"received_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_event"
}
