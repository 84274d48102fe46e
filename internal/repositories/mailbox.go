package repositories

import (
	"context"

	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Mailbox struct {
	db *gorm.DB
}

func NewMailboxRepository(db *gorm.DB) *Mailbox {
	return &Mailbox{db: db}
}

// Append inserts all entries in one transaction. An entry for a job the
// candidate was already notified about is skipped. It returns the number of
// entries actually inserted.
func (m *Mailbox) Append(ctx context.Context, entries []entities.MailboxEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	var inserted int64
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&entries, 100)
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to append mailbox entries")
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetByCandidate returns the mailbox in delivery order.
func (m *Mailbox) GetByCandidate(ctx context.Context, candidateID string) ([]entities.MailboxEntry, error) {

	var entries []entities.MailboxEntry
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCandidate(tx, candidateID); err != nil {
			return err
		}
		return tx.Order("id").Find(&entries, "candidate_id = ?", candidateID).Error
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
