// Package api exposes the candidate filter and mailbox routes and the job
// intake hook over HTTP.
package api

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/maxaizer/job-alerts/internal/services"
	log "github.com/sirupsen/logrus"
)

type filterService interface {
	Create(ctx context.Context, candidateID string, criteria services.FilterCriteria) (*entities.NotificationSetting, error)
	List(ctx context.Context, candidateID string) ([]entities.NotificationSetting, error)
	Update(ctx context.Context, candidateID, filterID string, criteria services.FilterCriteria) (*entities.NotificationSetting, error)
	Delete(ctx context.Context, candidateID, filterID string) error
	Mailbox(ctx context.Context, candidateID string) ([]entities.MailboxEntry, error)
}

type Server struct {
	app     *fiber.App
	filters filterService
	bus     EventBus.Bus
}

func NewServer(filters filterService, bus EventBus.Bus) *Server {
	s := &Server{
		app:     fiber.New(fiber.Config{ErrorHandler: handleError}),
		filters: filters,
		bus:     bus,
	}
	s.app.Use(accessLog)
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	candidates := s.app.Group("/candidates/:candidateId")
	candidates.Post("/filter", s.createFilter)
	candidates.Get("/filter", s.listFilters)
	candidates.Put("/filters/:filterId", s.updateFilter)
	candidates.Delete("/filters/:filterId", s.deleteFilter)
	candidates.Get("/notifications", s.notifications)

	s.app.Post("/jobs", s.createJob)
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(address string) error {
	log.Infof("http server listening on %s", address)
	return s.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func accessLog(c fiber.Ctx) error {
	start := time.Now()

	rid := c.Get(fiber.HeaderXRequestID)
	if rid == "" {
		rid = uuid.NewString()
		c.Set(fiber.HeaderXRequestID, rid)
	}

	err := c.Next()

	log.WithFields(log.Fields{
		"rid":     rid,
		"method":  c.Method(),
		"path":    c.OriginalURL(),
		"status":  c.Response().StatusCode(),
		"latency": time.Since(start),
	}).Debug("http request")
	return err
}
