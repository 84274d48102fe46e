package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/job-alerts/internal/entities"
	"gorm.io/gorm"
)

type FailedDeliveries struct {
	db *gorm.DB
}

func NewFailedDeliveriesRepository(db *gorm.DB) *FailedDeliveries {
	return &FailedDeliveries{db: db}
}

func (f FailedDeliveries) Add(ctx context.Context, delivery entities.FailedDelivery) error {
	return f.db.WithContext(ctx).Create(&delivery).Error
}

func (f FailedDeliveries) Get(ctx context.Context) ([]entities.FailedDelivery, error) {
	var deliveries []entities.FailedDelivery
	if err := f.db.WithContext(ctx).Order("id").Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (f FailedDeliveries) RemoveOld(ctx context.Context, expirationTime time.Time) (int64, error) {
	res := f.db.WithContext(ctx).Delete(&entities.FailedDelivery{}, "created_at < ?", expirationTime)
	return res.RowsAffected, res.Error
}
