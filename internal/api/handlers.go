package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/maxaizer/job-alerts/internal/events"
	"github.com/maxaizer/job-alerts/internal/services"
)

var validate = validator.New()

type filtersResponse struct {
	NotificationFilters []entities.NotificationSetting `json:"notificationFilters"`
}

type mailboxResponse struct {
	Emails []entities.MailboxEntry `json:"emails"`
}

type jobAcceptedResponse struct {
	ID string `json:"id"`
}

func (s *Server) createFilter(c fiber.Ctx) error {
	criteria, err := bindCriteria(c)
	if err != nil {
		return err
	}

	setting, err := s.filters.Create(c.Context(), c.Params("candidateId"), criteria)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(setting)
}

func (s *Server) listFilters(c fiber.Ctx) error {
	settings, err := s.filters.List(c.Context(), c.Params("candidateId"))
	if err != nil {
		return err
	}
	return c.JSON(filtersResponse{NotificationFilters: settings})
}

func (s *Server) updateFilter(c fiber.Ctx) error {
	criteria, err := bindCriteria(c)
	if err != nil {
		return err
	}

	setting, err := s.filters.Update(c.Context(), c.Params("candidateId"), c.Params("filterId"), criteria)
	if err != nil {
		return err
	}
	return c.JSON(setting)
}

func (s *Server) deleteFilter(c fiber.Ctx) error {
	if err := s.filters.Delete(c.Context(), c.Params("candidateId"), c.Params("filterId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) notifications(c fiber.Ctx) error {
	entries, err := s.filters.Mailbox(c.Context(), c.Params("candidateId"))
	if err != nil {
		return err
	}
	return c.JSON(mailboxResponse{Emails: entries})
}

// createJob hands a newly created job to the notification pipeline. The
// response does not depend on the broker being reachable.
func (s *Server) createJob(c fiber.Ctx) error {
	var job entities.Job
	if err := c.Bind().JSON(&job); err != nil {
		return badRequest(err)
	}

	event := entities.NewJobPostingEvent(job)
	if err := validate.Struct(event); err != nil {
		return badRequest(err)
	}
	job.ID = event.ID

	s.bus.Publish(events.JobCreatedTopic, events.JobCreated{Job: job})
	return c.Status(fiber.StatusAccepted).JSON(jobAcceptedResponse{ID: job.ID})
}

func bindCriteria(c fiber.Ctx) (services.FilterCriteria, error) {
	var criteria services.FilterCriteria
	if len(c.Body()) == 0 {
		return criteria, nil
	}
	if err := c.Bind().JSON(&criteria); err != nil {
		return criteria, badRequest(err)
	}
	return criteria, nil
}
