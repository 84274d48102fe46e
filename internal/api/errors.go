package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/maxaizer/job-alerts/internal/logger"
	"github.com/maxaizer/job-alerts/internal/repositories"
	"github.com/maxaizer/job-alerts/internal/services"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const messageInternalServerError = "Internal server error"

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func badRequest(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, "Malformed request body: "+err.Error())
}

// handleError renders every handler error as {status, message}.
func handleError(c fiber.Ctx, err error) error {
	status, message := normalizeError(err)
	if status >= fiber.StatusInternalServerError {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeHttp).
			Errorf("%s %s failed: %v", c.Method(), c.OriginalURL(), err)
	}
	return c.Status(status).JSON(errorResponse{Status: status, Message: message})
}

func normalizeError(err error) (int, string) {
	switch {
	case errors.Is(err, repositories.ErrCandidateNotFound):
		return fiber.StatusNotFound, "Candidate not found"
	case errors.Is(err, repositories.ErrFilterNotFound):
		return fiber.StatusNotFound, "Filter not found"
	case errors.Is(err, services.ErrInvalidFilter):
		return fiber.StatusBadRequest, err.Error()
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
		return fiberErr.Code, fiberErr.Message
	}
	return fiber.StatusInternalServerError, messageInternalServerError
}
