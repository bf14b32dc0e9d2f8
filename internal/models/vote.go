package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote 存在即表示已点赞；(post_id, voter_wallet) 唯一索引是去重的唯一依据
type Vote struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	PostID      string    `gorm:"size:36;not null;uniqueIndex:idx_vote_post_voter" json:"post_id"`
	Post        Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	VoterWallet string    `gorm:"size:42;not null;uniqueIndex:idx_vote_post_voter" json:"voter_wallet"`
	CreatedAt   time.Time `json:"created_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
