package services

import (
	"context"
	"time"

	"github.com/maxaizer/job-alerts/internal/logger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type deadLetterCleanupRepository interface {
	RemoveOld(ctx context.Context, expirationTime time.Time) (int64, error)
}

// DeadLettersCleaner prunes dead-lettered deliveries once a day.
type DeadLettersCleaner struct {
	deadLetters          deadLetterCleanupRepository
	cron                 *cron.Cron
	expirationTimeInDays int
}

func NewDeadLettersCleaner(deadLetters deadLetterCleanupRepository, expirationInDays int) (*DeadLettersCleaner, error) {

	if expirationInDays <= 0 {
		return nil, errors.New("expiration in days must be greater than zero")
	}

	dc := &DeadLettersCleaner{
		deadLetters:          deadLetters,
		cron:                 cron.New(),
		expirationTimeInDays: expirationInDays,
	}

	_, err := dc.cron.AddFunc("0 0 * * *", dc.cleanOldDeadLetters)
	if err != nil {
		return nil, err
	}

	dc.cron.Start()
	log.Infof("dead letters cleaner started, expiration in days: %d", dc.expirationTimeInDays)
	return dc, nil
}

func (dc *DeadLettersCleaner) Stop() {
	<-dc.cron.Stop().Done()
}

func (dc *DeadLettersCleaner) cleanOldDeadLetters() {
	expirationTime := time.Now().Add(-time.Duration(dc.expirationTimeInDays) * 24 * time.Hour)
	rowsAffected, err := dc.deadLetters.RemoveOld(context.Background(), expirationTime)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to clean old dead letters: %v", err)
	} else {
		log.Infof("old dead letters were cleaned at %v, affected rows: %v", time.Now(), rowsAffected)
	}
}
