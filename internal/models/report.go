package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxReportReasonLength 举报原因的最大字符数
const MaxReportReasonLength = 500

type Report struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	PostID         string    `gorm:"size:36;not null;index" json:"post_id"`
	ReporterWallet string    `gorm:"size:42;not null" json:"reporter_wallet"`
	Reason         *string   `gorm:"size:500" json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
