package services

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var ErrInvalidFilter = errors.New("invalid notification filter")

type FilterCriteria struct {
	CompanyNames []string `json:"companyNames" validate:"max=50,dive,max=200"`
	JobRoles     []string `json:"jobRoles" validate:"max=50,dive,max=200"`
	Keywords     []string `json:"keywords" validate:"max=50,dive,max=200"`
}

type settingsRepository interface {
	Add(ctx context.Context, setting entities.NotificationSetting) error
	GetByCandidate(ctx context.Context, candidateID string) ([]entities.NotificationSetting, error)
	Replace(ctx context.Context, setting entities.NotificationSetting) error
	Remove(ctx context.Context, candidateID string, settingID string) error
}

type mailboxReader interface {
	GetByCandidate(ctx context.Context, candidateID string) ([]entities.MailboxEntry, error)
}

// Filters manages the notification settings and mailbox reads of a candidate.
type Filters struct {
	settings settingsRepository
	mailbox  mailboxReader
	validate *validator.Validate
}

func NewFilters(settings settingsRepository, mailbox mailboxReader) *Filters {
	return &Filters{settings: settings, mailbox: mailbox, validate: validator.New()}
}

func (f *Filters) Create(ctx context.Context, candidateID string, criteria FilterCriteria) (*entities.NotificationSetting, error) {
	setting, err := f.toSetting(candidateID, uuid.NewString(), criteria)
	if err != nil {
		return nil, err
	}

	if err = f.settings.Add(ctx, setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (f *Filters) List(ctx context.Context, candidateID string) ([]entities.NotificationSetting, error) {
	settings, err := f.settings.GetByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return lo.Map(settings, func(s entities.NotificationSetting, _ int) entities.NotificationSetting {
		s.CompanyNames = nonNil(s.CompanyNames)
		s.JobRoles = nonNil(s.JobRoles)
		s.Keywords = nonNil(s.Keywords)
		return s
	}), nil
}

// Update replaces all three criteria lists of the filter.
func (f *Filters) Update(ctx context.Context, candidateID, filterID string, criteria FilterCriteria) (*entities.NotificationSetting, error) {
	setting, err := f.toSetting(candidateID, filterID, criteria)
	if err != nil {
		return nil, err
	}

	if err = f.settings.Replace(ctx, setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (f *Filters) Delete(ctx context.Context, candidateID, filterID string) error {
	return f.settings.Remove(ctx, candidateID, filterID)
}

func (f *Filters) Mailbox(ctx context.Context, candidateID string) ([]entities.MailboxEntry, error) {
	entries, err := f.mailbox.GetByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return nonNil(entries), nil
}

func (f *Filters) toSetting(candidateID, filterID string, criteria FilterCriteria) (entities.NotificationSetting, error) {
	criteria = FilterCriteria{
		CompanyNames: normalizeList(criteria.CompanyNames, entities.NormalizeName),
		JobRoles:     normalizeList(criteria.JobRoles, entities.NormalizeName),
		Keywords:     normalizeList(criteria.Keywords, strings.TrimSpace),
	}

	if err := f.validate.Struct(criteria); err != nil {
		return entities.NotificationSetting{}, errors.Wrap(ErrInvalidFilter, err.Error())
	}

	return entities.NotificationSetting{
		ID:           filterID,
		CandidateID:  candidateID,
		CompanyNames: criteria.CompanyNames,
		JobRoles:     criteria.JobRoles,
		Keywords:     criteria.Keywords,
	}, nil
}

func normalizeList(items []string, normalize func(string) string) []string {
	normalized := lo.FilterMap(items, func(item string, _ int) (string, bool) {
		item = normalize(item)
		return item, item != ""
	})
	return lo.Uniq(normalized)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
