package engine

import (
	"context"
	"log/slog"
	"time"

	"tutorbot/app/config"
	"tutorbot/app/service/conversation"
	"tutorbot/app/service/queue"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

// Chatter runs a single conversation turn to completion.
type Chatter interface {
	Chat(ctx context.Context, req conversation.Request) (*conversation.Result, error)
}

type Service struct {
	workers  int
	chatter  Chatter
	queueSvc *queue.Service
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewWithChatter(
		cfg.Engine.Workers,
		do.MustInvoke[*conversation.Service](di),
		do.MustInvoke[*queue.Service](di),
	), nil
}

func NewWithChatter(workers int, chatter Chatter, queueSvc *queue.Service) *Service {
	return &Service{
		workers:  max(workers, 1),
		chatter:  chatter,
		queueSvc: queueSvc,
	}
}

// Run drains the queue with a fixed number of workers until ctx is done or the queue is closed.
func (s *Service) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for i := 0; i < s.workers; i++ {
		worker := i
		group.Go(func() error {
			s.runWorker(groupCtx, worker)
			return nil
		})
	}

	slog.Info("Engine started", "workers", s.workers)

	return group.Wait()
}

func (s *Service) runWorker(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.queueSvc.Channel():
			if !ok {
				return
			}

			s.process(worker, job)
		}
	}
}

func (s *Service) process(worker int, job queue.Job) {
	// the submitter has already given up
	if err := job.Ctx.Err(); err != nil {
		job.Reply <- queue.Outcome{Err: err}
		return
	}

	start := time.Now()
	result, err := s.chatter.Chat(job.Ctx, job.Request)
	if err != nil {
		slog.Warn("Chat error", "worker", worker, "error", err)
	}

	slog.Info("Processed chat",
		"worker", worker,
		"messages", len(job.Request.Messages),
		"duration", time.Since(start),
	)

	job.Reply <- queue.Outcome{Result: result, Err: err}
}

// Submit enqueues a chat and waits for its outcome.
func (s *Service) Submit(ctx context.Context, req conversation.Request) (*conversation.Result, error) {
	reply := make(chan queue.Outcome, 1)

	if err := s.queueSvc.Add(queue.Job{Ctx: ctx, Request: req, Reply: reply}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case outcome := <-reply:
		return outcome.Result, outcome.Err
	}
}
