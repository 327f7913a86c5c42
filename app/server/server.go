package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tutorbot/app/client/runner"
	"tutorbot/app/config"
	"tutorbot/app/service/conversation"
	"tutorbot/app/service/engine"
	"tutorbot/app/service/queue"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Server)(nil)

// statusClientClosedRequest is reported when the caller went away before the chat finished.
const statusClientClosedRequest = 499

// Submitter hands a chat to the worker pool and waits for the outcome.
type Submitter interface {
	Submit(ctx context.Context, req conversation.Request) (*conversation.Result, error)
}

type Server struct {
	cfg       config.Server
	app       *fiber.App
	submitter Submitter
	validate  *validator.Validate

	shutdownOnce sync.Once
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewServer(cfg.Server, do.MustInvoke[*engine.Service](di)), nil
}

func NewServer(cfg config.Server, submitter Submitter) *Server {
	s := &Server{
		cfg:       cfg,
		submitter: submitter,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "tutorbot",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New())

	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	s.app.Post("/api/chat", s.handleChat)

	return s
}

func (s *Server) Listen() error {
	slog.Info("HTTP server listening", "addr", s.cfg.Addr)

	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.app.Shutdown()
	})

	return err
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req conversation.Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("malformed body: %v", err))
	}

	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Level >= conversation.LevelCount {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("level must be in range [0, %d)", conversation.LevelCount))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.RequestTimeout)
	defer cancel()

	result, err := s.submitter.Submit(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusOf(err)

	requestID, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)

	switch {
	case code == statusClientClosedRequest:
		slog.Debug("Chat request abandoned", "request_id", requestID)
	case code >= fiber.StatusInternalServerError:
		slog.Error("Chat request failed",
			"error", err,
			"status", code,
			"request_id", requestID,
		)
	}

	return c.Status(code).JSON(errorResponse{
		Error:     err.Error(),
		RequestID: requestID,
	})
}

func statusOf(err error) int {
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, conversation.ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrClosed):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, conversation.ErrUpstreamModel), errors.Is(err, runner.ErrExecution):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
