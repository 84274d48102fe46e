package entities

import (
	"strings"

	"github.com/google/uuid"
)

// Job is what job creation hands over to the notification pipeline.
type Job struct {
	ID          string `json:"id"`
	CompanyName string `json:"companyName" validate:"required"`
	Role        string `json:"role" validate:"required"`
	Description string `json:"description"`
}

// JobPostingEvent is the message body carried by the broker.
type JobPostingEvent struct {
	ID          string `json:"id" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
	Role        string `json:"role" validate:"required"`
	Description string `json:"description"`
}

func NewJobPostingEvent(job Job) JobPostingEvent {
	id := strings.TrimSpace(job.ID)
	if id == "" {
		id = uuid.NewString()
	}

	return JobPostingEvent{
		ID:          id,
		CompanyName: NormalizeName(job.CompanyName),
		Role:        NormalizeName(job.Role),
		Description: strings.TrimSpace(job.Description),
	}
}

// NormalizeName trims the value and collapses inner whitespace runs to a single space.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
