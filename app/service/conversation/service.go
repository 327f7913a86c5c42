package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tutorbot/app/client/runner"
	"tutorbot/app/config"
	"tutorbot/app/service/toolset"
	"tutorbot/app/util/mylog"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const failedExecutionTemplate = "Execution failed: %s. Try running the correct code."

// Executor runs extracted code remotely.
type Executor interface {
	Execute(ctx context.Context, code, language string) (*runner.Result, error)
}

type step int

const (
	stepRoute step = iota
	stepSummarize
	stepRespond
	stepJudge
	stepDone
)

func (s step) String() string {
	switch s {
	case stepRoute:
		return "route"
	case stepSummarize:
		return "summarize"
	case stepRespond:
		return "respond"
	case stepJudge:
		return "judge"
	case stepDone:
		return "done"
	default:
		return "unknown"
	}
}

// Service runs the reflection loop: route, summarize when the log is long, reply,
// then let the judge run the code and send the run back with a corrective turn on failure.
type Service struct {
	agentCfg config.Agent

	summaryAgent *SummaryAgent
	replyAgent   *ReplyAgent
	judgeAgent   *JudgeAgent
	executor     Executor
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	toolSvc := do.MustInvoke[*toolset.Service](di)
	runnerClient := do.MustInvoke[*runner.Client](di)

	handler := toolset.LogCallbackHandler{}

	hotModel, err := createModel(cfg.Models.Hot, handler)
	if err != nil {
		return nil, err
	}
	coldModel, err := createModel(cfg.Models.Cold, handler)
	if err != nil {
		return nil, err
	}

	return newService(
		cfg.Agent,
		NewSummaryAgent(
			createClient(cfg.Models.Summarizer),
			cfg.Models.Summarizer.Model,
			cfg.Models.Summarizer.Temperature,
			cfg.Agent.KeepMessages,
		),
		NewReplyAgent(coldModel, cfg.Models.Cold.Temperature, toolSvc, cfg.Agent.MaxToolSteps),
		NewJudgeAgent(hotModel, cfg.Models.Hot.Temperature, cfg.Models.Hot.ForceToolChoice),
		runnerClient,
	), nil
}

func newService(
	agentCfg config.Agent,
	summaryAgent *SummaryAgent,
	replyAgent *ReplyAgent,
	judgeAgent *JudgeAgent,
	executor Executor,
) *Service {
	return &Service{
		agentCfg:     agentCfg,
		summaryAgent: summaryAgent,
		replyAgent:   replyAgent,
		judgeAgent:   judgeAgent,
		executor:     executor,
	}
}

func (s *Service) Chat(ctx context.Context, req Request) (*Result, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: no messages", ErrInvalidRequest)
	}
	if _, ok := systemPrompt(req.Level); !ok {
		return nil, fmt.Errorf("%w: level %d is out of range [0, %d)", ErrInvalidRequest, req.Level, LevelCount)
	}

	runID := uuid.NewString()
	logger := slog.With("run_id", runID, "level", req.Level)
	start := time.Now()

	result, err := s.run(ctx, logger, req.Problem, newState(req))

	runDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		runsTotal.WithLabelValues("error").Inc()
		logger.Error("Chat run failed",
			"error", err,
			"duration", time.Since(start),
		)
		return nil, oops.With("run_id", runID).Wrap(err)
	case result.Exhausted:
		runsTotal.WithLabelValues("exhausted").Inc()
		logger.Warn("Chat run stopped after max reflections",
			"reflections", result.Reflections,
			"duration", time.Since(start),
			mylog.TelegramKey, true,
		)
	default:
		runsTotal.WithLabelValues("done").Inc()
		logger.Info("Chat run finished",
			"reflections", result.Reflections,
			"messages", len(result.Messages),
			"duration", time.Since(start),
		)
	}

	return result, nil
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, problem string, state *State) (*Result, error) {
	var result Result

	current := stepRoute
	for current != stepDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Debug("Step", "step", current, "messages", len(state.Messages))
		stepsTotal.WithLabelValues(current.String()).Inc()

		switch current {
		case stepRoute:
			current = s.route(state)
		case stepSummarize:
			if err := s.summaryAgent.Call(ctx, state); err != nil {
				return nil, err
			}
			current = stepRespond
		case stepRespond:
			if _, err := s.replyAgent.Call(ctx, problem, state); err != nil {
				return nil, err
			}
			current = stepJudge
		case stepJudge:
			failure, failed, err := s.judge(ctx, logger, state)
			if err != nil {
				return nil, err
			}

			switch {
			case !failed:
				current = stepDone
			case result.Reflections >= s.agentCfg.MaxReflections:
				// no reply would answer the correction, so it stays out of the log
				result.Exhausted = true
				current = stepDone
			default:
				state.add(RoleUser, failedExecutionMessage(failure))
				result.Reflections++
				reflectionsTotal.Inc()
				current = stepRespond
			}
		default:
			return nil, fmt.Errorf("unexpected step %v", current)
		}
	}

	result.Response, _ = state.lastReply()
	result.Summary = state.Summary
	result.Messages = state.snapshot()

	return &result, nil
}

func (s *Service) route(state *State) step {
	if state.needsSummary(s.agentCfg.SummaryThreshold) {
		return stepSummarize
	}

	return stepRespond
}

// judge runs the code found in the latest reply. It returns the runner error and true
// when the code ran and failed.
func (s *Service) judge(ctx context.Context, logger *slog.Logger, state *State) (string, bool, error) {
	decision, err := s.judgeAgent.Call(ctx, state)
	if err != nil {
		return "", false, err
	}

	switch d := decision.(type) {
	case NoCode:
		logger.Debug("No code to run")
		return "", false, nil
	case ExtractCode:
		res, err := s.executor.Execute(ctx, d.Code, d.Language)
		if err != nil {
			executionsTotal.WithLabelValues("error").Inc()
			return "", false, err
		}

		if res.Passed {
			executionsTotal.WithLabelValues("passed").Inc()
			logger.Debug("Code passed", "language", d.Language)
			return "", false, nil
		}

		executionsTotal.WithLabelValues("failed").Inc()
		logger.Info("Code failed",
			"language", d.Language,
			"error", res.Error,
		)

		return res.Error, true, nil
	default:
		return "", false, fmt.Errorf("unexpected decision %T", decision)
	}
}

func failedExecutionMessage(reason string) string {
	if reason == "" {
		reason = "unknown"
	}

	return fmt.Sprintf(failedExecutionTemplate, reason)
}
