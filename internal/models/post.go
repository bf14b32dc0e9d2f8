package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FailTypes 帖子允许的失败分类，顺序即前端展示顺序
var FailTypes = []string{
	"hallucination",
	"confident",
	"loop",
	"apology",
	"uno_reverse",
	"unhinged",
	"other",
}

// IsFailType 判断分类是否合法
func IsFailType(s string) bool {
	for _, t := range FailTypes {
		if t == s {
			return true
		}
	}
	return false
}

type Post struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Caption         *string   `gorm:"type:text" json:"caption"`
	ImageURL        string    `gorm:"not null" json:"image_url"`
	SourceLink      *string   `json:"source_link"`
	Agent           string    `gorm:"size:64;not null;index" json:"agent"`
	FailType        string    `gorm:"size:20;not null" json:"fail_type"`
	SubmitterWallet *string   `gorm:"size:42;index" json:"submitter_wallet"` // 历史纯 agent 投稿可为空
	UpvoteCount     int64     `gorm:"not null;default:0;index" json:"upvote_count"`
	PaymentTxHash   *string   `gorm:"uniqueIndex;size:66" json:"payment_tx_hash,omitempty"`
	PaymentAmount   *string   `gorm:"size:20" json:"payment_amount,omitempty"`
	PaymentCurrency *string   `gorm:"size:10" json:"payment_currency,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
