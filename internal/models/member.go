package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MembershipClass 记录钱包"如何加入"，写入后不再变更
type MembershipClass string

const (
	MembershipPaid         MembershipClass = "paid"
	MembershipEarlyAdopter MembershipClass = "early_adopter"
	MembershipAnonsHolder  MembershipClass = "anons_holder"
	MembershipShirtBuyer   MembershipClass = "shirt_buyer"
)

type Member struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	WalletAddress   string          `gorm:"uniqueIndex;size:42;not null" json:"wallet_address"` // 小写
	MembershipType  MembershipClass `gorm:"size:20;not null" json:"membership_type"`
	PaymentTxHash   *string         `gorm:"uniqueIndex;size:66" json:"payment_tx_hash"`
	PaymentAmount   string          `gorm:"size:20;default:'0.00'" json:"payment_amount"`
	PaymentCurrency string          `gorm:"size:10;default:'USDC'" json:"payment_currency"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
