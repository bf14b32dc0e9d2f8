package models

// CounterPostsTotal 帖子总数计数器，阶段阈值的唯一数据来源
const CounterPostsTotal = "posts_total"

// SiteCounter 单调递增的全站计数器
type SiteCounter struct {
	Name  string `gorm:"primaryKey;size:50"`
	Value int64  `gorm:"not null;default:0"`
}
