package models

import (
	"time"
)

type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentCompleted FulfillmentStatus = "completed"
	FulfillmentFailed    FulfillmentStatus = "failed"
)

// Fulfillment 以 Stripe checkout session id 为键的履约记录，webhook 重投时据此去重
type Fulfillment struct {
	SessionID       string            `gorm:"primaryKey;size:255" json:"session_id"`
	WalletAddress   string            `gorm:"size:42" json:"wallet_address"`
	Size            string            `gorm:"size:10" json:"size"`
	PrintifyOrderID string            `gorm:"size:64" json:"printify_order_id"`
	Status          FulfillmentStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	Attempts        int               `gorm:"not null;default:0" json:"attempts"`
	LastError       string            `gorm:"type:text" json:"last_error"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
