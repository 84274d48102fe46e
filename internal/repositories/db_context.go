package repositories

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/maxaizer/job-alerts/internal/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one connection serializes writers; sqlite rejects concurrent ones with SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	err := c.DB.AutoMigrate(entities.Candidate{})
	if err != nil {
		return fmt.Errorf("failed to migrate Candidate entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.NotificationSetting{})
	if err != nil {
		return fmt.Errorf("failed to migrate NotificationSetting entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.MailboxEntry{})
	if err != nil {
		return fmt.Errorf("failed to migrate MailboxEntry entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.FailedDelivery{})
	if err != nil {
		return fmt.Errorf("failed to migrate FailedDelivery entity: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
