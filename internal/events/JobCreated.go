package events

import "github.com/maxaizer/job-alerts/internal/entities"

var JobCreatedTopic = "JobCreatedEvent"

type JobCreated struct {
	Job entities.Job
}
