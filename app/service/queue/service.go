package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tutorbot/app/config"
	"tutorbot/app/service/conversation"

	"github.com/samber/do"
)

var (
	ErrQueueFull = errors.New("chat queue is full")
	ErrClosed    = errors.New("chat queue is closed")
)

var _ do.Shutdownable = (*Service)(nil)

type Service struct {
	mu     sync.RWMutex
	closed bool
	queue  chan Job
}

// Job is a single chat run waiting for a worker. Reply is buffered by the submitter.
type Job struct {
	Ctx     context.Context
	Request conversation.Request
	Reply   chan<- Outcome
}

type Outcome struct {
	Result *conversation.Result
	Err    error
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewWithSize(cfg.Engine.QueueSize), nil
}

func NewWithSize(size int) *Service {
	return &Service{
		queue: make(chan Job, size),
	}
}

func (s *Service) Add(job Job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	select {
	case s.queue <- job:
		return nil
	default:
		slog.Warn("Chat queue is full", "capacity", cap(s.queue))
		return ErrQueueFull
	}
}

func (s *Service) Len() int {
	return len(s.queue)
}

func (s *Service) Channel() <-chan Job {
	return s.queue
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.queue)
	}

	return nil
}
