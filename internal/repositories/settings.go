package repositories

import (
	"context"

	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Settings stores notification settings as one row each, so concurrent
// changes to different settings of a candidate never overwrite each other.
type Settings struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

func (repo *Settings) Add(ctx context.Context, setting entities.NotificationSetting) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCandidate(tx, setting.CandidateID); err != nil {
			return err
		}
		return errors.Wrap(tx.Create(&setting).Error, "failed to create notification setting")
	})
}

func (repo *Settings) GetByCandidate(ctx context.Context, candidateID string) ([]entities.NotificationSetting, error) {

	var settings []entities.NotificationSetting
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCandidate(tx, candidateID); err != nil {
			return err
		}
		return tx.Order("rowid").Find(&settings, "candidate_id = ?", candidateID).Error
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// Replace overwrites the criteria lists of an existing setting, keeping its id.
func (repo *Settings) Replace(ctx context.Context, setting entities.NotificationSetting) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCandidate(tx, setting.CandidateID); err != nil {
			return err
		}

		res := tx.Model(&entities.NotificationSetting{}).
			Where("id = ? AND candidate_id = ?", setting.ID, setting.CandidateID).
			Select("CompanyNames", "JobRoles", "Keywords", "UpdatedAt").
			Updates(&setting)
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to update notification setting")
		}
		if res.RowsAffected == 0 {
			return ErrFilterNotFound
		}
		return nil
	})
}

func (repo *Settings) Remove(ctx context.Context, candidateID string, settingID string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCandidate(tx, candidateID); err != nil {
			return err
		}

		res := tx.Where("id = ? AND candidate_id = ?", settingID, candidateID).
			Delete(&entities.NotificationSetting{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to delete notification setting")
		}
		if res.RowsAffected == 0 {
			return ErrFilterNotFound
		}
		return nil
	})
}

func requireCandidate(tx *gorm.DB, candidateID string) error {
	exists, err := candidateExists(tx, candidateID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCandidateNotFound
	}
	return nil
}
