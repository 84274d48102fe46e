package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/maxaizer/job-alerts/internal/logger"
	"github.com/maxaizer/job-alerts/internal/matching"
	"github.com/maxaizer/job-alerts/internal/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type candidateRepository interface {
	GetWithSettings(ctx context.Context, afterID string, limit int) ([]entities.Candidate, error)
}

type mailboxRepository interface {
	Append(ctx context.Context, entries []entities.MailboxEntry) (int64, error)
}

type DeliveryReport struct {
	JobID     string
	Scanned   int
	Matched   int
	Delivered int64
}

// Notifier fans a job posting out to the mailboxes of matching candidates.
type Notifier struct {
	candidates       candidateRepository
	mailbox          mailboxRepository
	contextMaxLength int
	pageSize         int
	now              func() time.Time
}

func NewNotifier(candidates candidateRepository, mailbox mailboxRepository, contextMaxLength, pageSize int) (*Notifier, error) {
	if contextMaxLength <= 0 {
		return nil, errors.New("context max length must be greater than zero")
	}
	if pageSize <= 0 {
		return nil, errors.New("page size must be greater than zero")
	}

	return &Notifier{
		candidates:       candidates,
		mailbox:          mailbox,
		contextMaxLength: contextMaxLength,
		pageSize:         pageSize,
		now:              time.Now,
	}, nil
}

// Notify matches the job against every candidate and appends all resulting
// mailbox entries in a single write. Nothing is written when loading fails.
func (n *Notifier) Notify(ctx context.Context, job entities.JobPostingEvent) (DeliveryReport, error) {

	report := DeliveryReport{JobID: job.ID}
	var entries []entities.MailboxEntry

	for afterID := ""; ; {
		candidates, err := n.candidates.GetWithSettings(ctx, afterID, n.pageSize)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to load candidates for job %v: %v", job.ID, err)
			return report, err
		}

		for _, candidate := range candidates {
			if matching.Matches(candidate.NotificationSettings, job) {
				entries = append(entries, n.newMailboxEntry(candidate.ID, job))
			}
		}
		report.Scanned += len(candidates)

		if len(candidates) < n.pageSize {
			break
		}
		afterID = candidates[len(candidates)-1].ID
	}
	report.Matched = len(entries)

	delivered, err := n.mailbox.Append(ctx, entries)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to append %v mailbox entries for job %v: %v", len(entries), job.ID, err)
		return report, err
	}
	report.Delivered = delivered
	metrics.DeliveredNotificationsCounter.Add(float64(delivered))

	log.Infof("job %v: scanned %v candidates, matched %v, delivered %v",
		job.ID, report.Scanned, report.Matched, report.Delivered)
	return report, nil
}

func (n *Notifier) newMailboxEntry(candidateID string, job entities.JobPostingEvent) entities.MailboxEntry {
	sender := capitalize(job.CompanyName)
	return entities.MailboxEntry{
		CandidateID: candidateID,
		JobID:       job.ID,
		Date:        n.now().UnixMilli(),
		Sender:      sender,
		Context:     fmt.Sprintf("New %s position at %s: %s", job.Role, sender, truncate(job.Description, n.contextMaxLength)),
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// truncate cuts s to at most maxRunes runes, marking the cut with an ellipsis.
func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:maxRunes]), unicode.IsSpace) + "..."
}
