package db

import (
	"fmt"
	"log"

	"agentfails/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 连接 Postgres 并完成迁移，失败直接退出
func Init(dsn string) *gorm.DB {
	var err error
	DB, err = Open(postgres.Open(dsn))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")
	return DB
}

// Open 打开数据库连接；唯一键冲突统一翻译为 gorm.ErrDuplicatedKey
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

// Migrate 自动迁移表结构并初始化计数器
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.Member{},
		&models.Post{},
		&models.Vote{},
		&models.Comment{},
		&models.Report{},
		&models.SiteCounter{},
		&models.Fulfillment{},
	)
	if err != nil {
		return err
	}
	return seedCounters(gdb)
}

func seedCounters(gdb *gorm.DB) error {
	var existing int64
	err := gdb.Model(&models.SiteCounter{}).Where("name = ?", models.CounterPostsTotal).Count(&existing).Error
	if err != nil {
		return fmt.Errorf("check %s: %w", models.CounterPostsTotal, err)
	}
	if existing > 0 {
		log.Println("Counters already seeded, skipping")
		return nil
	}

	// 历史数据已存在时从实际帖子数起步
	var posts int64
	if err := gdb.Model(&models.Post{}).Count(&posts).Error; err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	counter := models.SiteCounter{Name: models.CounterPostsTotal, Value: posts}
	if err := gdb.Create(&counter).Error; err != nil {
		return fmt.Errorf("seed %s: %w", counter.Name, err)
	}
	log.Printf("Counter %s seeded at %d", counter.Name, posts)
	return nil
}
