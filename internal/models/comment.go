package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxCommentLength 评论内容的最大字符数
const MaxCommentLength = 2000

type Comment struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	PostID          string    `gorm:"size:36;not null;index" json:"post_id"`
	Post            Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	AuthorWallet    *string   `gorm:"size:42" json:"author_wallet"`
	AuthorName      *string   `gorm:"size:64" json:"author_name"`
	PaymentTxHash   *string   `gorm:"uniqueIndex;size:66" json:"payment_tx_hash"`
	PaymentAmount   *string   `gorm:"size:20" json:"payment_amount,omitempty"`
	PaymentCurrency *string   `gorm:"size:10" json:"payment_currency,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
