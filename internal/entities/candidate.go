package entities

import "time"

type Candidate struct {
	ID                   string                `json:"id" gorm:"primaryKey"`
	Name                 string                `json:"name"`
	Email                string                `json:"email"`
	NotificationSettings []NotificationSetting `json:"notificationSettings" gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE"`
	Mailbox              []MailboxEntry        `json:"mailbox" gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time             `json:"createdAt"`
}

// NotificationSetting is a saved filter. An empty list imposes no constraint
// on its dimension.
type NotificationSetting struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	CandidateID  string    `json:"-" gorm:"index;not null"`
	CompanyNames []string  `json:"companyNames" gorm:"serializer:json"`
	JobRoles     []string  `json:"jobRoles" gorm:"serializer:json"`
	Keywords     []string  `json:"keywords" gorm:"serializer:json"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

type MailboxEntry struct {
	ID          uint   `json:"-" gorm:"primaryKey"`
	CandidateID string `json:"-" gorm:"not null;uniqueIndex:idx_candidate_job"`
	JobID       string `json:"-" gorm:"not null;uniqueIndex:idx_candidate_job"`
	Date        int64  `json:"date"`
	Sender      string `json:"sender"`
	Context     string `json:"context"`
}
