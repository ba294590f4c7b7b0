package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/queue"
)

// TaskService submits asynchronous jobs and executes their bodies inside the
// worker pool. It satisfies worker.TaskRunner.
type TaskService struct {
	orch      *Orchestrator
	queue     *queue.Queue
	extractor domain.DocumentExtractor // nil disables parse kinds
	tracer    trace.Tracer
}

// NewTaskService wires a TaskService. The extractor may be nil when document
// parsing is not deployed.
func NewTaskService(orch *Orchestrator, q *queue.Queue, extractor domain.DocumentExtractor) *TaskService {
	return &TaskService{orch: orch, queue: q, extractor: extractor, tracer: otel.Tracer("usecase.tasks")}
}

// Submit validates and enqueues a task, returning the job ID.
func (s *TaskService) Submit(ctx context.Context, payload domain.TaskPayload, priority domain.Priority) (string, error) {
	if !priority.Valid() {
		return "", fmt.Errorf("op=usecase.Submit: %w: unknown priority %q", domain.ErrInvalidArgument, priority)
	}
	switch payload.Kind {
	case domain.KindMatch:
		if payload.CandidateID == "" || payload.JobID == "" {
			return "", fmt.Errorf("op=usecase.Submit: %w: match tasks need candidate and job ids", domain.ErrInvalidArgument)
		}
	case domain.KindParse:
		if len(payload.Document) == 0 {
			return "", fmt.Errorf("op=usecase.Submit: %w: parse tasks need a document", domain.ErrInvalidArgument)
		}
	case domain.KindParseAndMatch:
		if len(payload.Document) == 0 || payload.JobID == "" {
			return "", fmt.Errorf("op=usecase.Submit: %w: parse_and_match tasks need a document and a job id", domain.ErrInvalidArgument)
		}
	default:
		return "", fmt.Errorf("op=usecase.Submit: %w: unknown kind %q", domain.ErrInvalidArgument, payload.Kind)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("op=usecase.Submit: marshal payload: %w", err)
	}
	job := &domain.Job{
		ID:            uuid.NewString(),
		Kind:          payload.Kind,
		Priority:      priority,
		Payload:       body,
		WebhookURL:    payload.WebhookURL,
		WebhookSecret: payload.WebhookSecret,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Status reports a submitted job's queue state.
func (s *TaskService) Status(jobID string) (*domain.Job, error) {
	return s.queue.Fetch(jobID)
}

// RunTask executes one dequeued job body and returns its JSON result.
func (s *TaskService) RunTask(ctx context.Context, job *domain.Job, payload domain.TaskPayload) (json.RawMessage, error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.RunTask")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.job_id", job.ID),
		attribute.String("task.kind", string(payload.Kind)),
		attribute.String("task.priority", string(job.Priority)),
	)

	switch payload.Kind {
	case domain.KindMatch:
		res, err := s.orch.MatchByID(ctx, payload.CandidateID, payload.JobID, payload.Options)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	case domain.KindParse:
		profile, err := s.extract(ctx, payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal(profile)
	case domain.KindParseAndMatch:
		profile, err := s.extract(ctx, payload)
		if err != nil {
			return nil, err
		}
		if profile.ID == "" {
			profile.ID = uuid.NewString()
		}
		posting, err := s.orch.store.GetJob(ctx, payload.JobID)
		if err != nil {
			return nil, fmt.Errorf("op=usecase.RunTask: job %s: %w", payload.JobID, err)
		}
		res, err := s.orch.Match(ctx, domain.MatchRequest{Candidate: profile, Job: posting, Options: payload.Options})
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	default:
		return nil, fmt.Errorf("op=usecase.RunTask: %w: unknown kind %q", domain.ErrInvalidArgument, payload.Kind)
	}
}

func (s *TaskService) extract(ctx context.Context, payload domain.TaskPayload) (domain.CandidateProfile, error) {
	if s.extractor == nil {
		return domain.CandidateProfile{}, fmt.Errorf("op=usecase.extract: %w: no document extractor configured", domain.ErrInvalidArgument)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	profile, err := s.extractor.Extract(ctx, payload.Document, payload.Filename)
	if err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("op=usecase.extract: %w", err)
	}
	return profile, nil
}
