package repositories

import (
	"context"

	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Candidates struct {
	db *gorm.DB
}

func NewCandidatesRepository(db *gorm.DB) *Candidates {
	return &Candidates{db: db}
}

func (repo *Candidates) Add(ctx context.Context, candidate entities.Candidate) error {
	return repo.db.WithContext(ctx).Create(&candidate).Error
}

func (repo *Candidates) Exists(ctx context.Context, candidateID string) (bool, error) {
	return candidateExists(repo.db.WithContext(ctx), candidateID)
}

// GetWithSettings returns up to limit candidates whose id sorts after afterID,
// ordered by id, settings preloaded, mailbox omitted. An empty afterID starts
// from the first candidate.
func (repo *Candidates) GetWithSettings(ctx context.Context, afterID string, limit int) ([]entities.Candidate, error) {

	var candidates []entities.Candidate
	if err := repo.db.WithContext(ctx).
		Preload("NotificationSettings").
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&candidates).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load candidates")
	}
	return candidates, nil
}

func candidateExists(db *gorm.DB, candidateID string) (bool, error) {
	var count int64
	if err := db.Model(&entities.Candidate{}).Where("id = ?", candidateID).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "failed to look up candidate")
	}
	return count > 0, nil
}
