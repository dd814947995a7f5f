// Package parsejob runs document parses as background jobs. A job stores
// the JSON parse result; PARTIAL parses complete the job and resubmitting
// the same document resumes from the parse cache.
package parsejob

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/jobx"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
	"github.com/Abraxas-365/hybridparse/pkg/parsing"
)

const JobType = "document.parse"

var ErrRegistry = errx.NewRegistry("PARSEJOB")

var (
	ErrInvalidPayload = ErrRegistry.Register("INVALID_PAYLOAD", errx.TypeValidation, 400, "Invalid parse job payload")
	ErrCorruptResult  = ErrRegistry.Register("CORRUPT_RESULT", errx.TypeInternal, 500, "Stored job result could not be decoded")
)

type Parser interface {
	Parse(ctx context.Context, req parsing.Request) (*parsing.Result, error)
}

type Payload struct {
	Path string       `json:"path"`
	Mode parsing.Mode `json:"mode"`
}

// Status is the client view of a parse job.
type Status struct {
	ID        string          `json:"id"`
	Status    jobx.JobStatus  `json:"status"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error,omitempty"`
	Request   Payload         `json:"request"`
	Result    *parsing.Result `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Service struct {
	jobs   *jobx.Client
	parser Parser
	queue  string
}

// NewService registers the parse handler on jobs.
func NewService(jobs *jobx.Client, parser Parser, queue string) *Service {
	s := &Service{jobs: jobs, parser: parser, queue: queue}
	jobs.Register(JobType, s.Handle)
	return s
}

func (s *Service) Submit(ctx context.Context, req parsing.Request) (string, error) {
	if strings.TrimSpace(req.Path) == "" {
		return "", ErrRegistry.NewWithMessage(ErrInvalidPayload, "path is required")
	}
	payload, err := json.Marshal(Payload{Path: req.Path, Mode: req.Mode})
	if err != nil {
		return "", ErrRegistry.NewWithCause(ErrInvalidPayload, err)
	}
	id, err := s.jobs.Enqueue(ctx, jobx.Job{Type: JobType, Queue: s.queue, Payload: payload})
	if err != nil {
		return "", err
	}
	logx.WithFields(logx.Fields{"job_id": id, "path": req.Path, "mode": req.Mode}).Info("parse job submitted")
	return id, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Status, error) {
	info, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	st := &Status{
		ID:        info.ID,
		Status:    info.Status,
		Attempts:  info.Attempts,
		Error:     info.Error,
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
	}
	_ = json.Unmarshal(info.Payload, &st.Request)
	if len(info.Result) > 0 {
		var res parsing.Result
		if err := json.Unmarshal(info.Result, &res); err != nil {
			return nil, ErrRegistry.NewWithCause(ErrCorruptResult, err).WithDetail("job_id", id)
		}
		st.Result = &res
	}
	return st, nil
}

// Handle is the jobx handler for JobType.
func (s *Service) Handle(ctx context.Context, job *jobx.JobInfo) ([]byte, error) {
	var p Payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, ErrRegistry.NewWithCause(ErrInvalidPayload, err).NonRetryable()
	}
	if strings.TrimSpace(p.Path) == "" {
		return nil, ErrRegistry.NewWithMessage(ErrInvalidPayload, "path is required").NonRetryable()
	}

	res, err := s.parser.Parse(ctx, parsing.Request{Path: p.Path, Mode: p.Mode})
	if err != nil {
		return nil, err
	}
	logx.WithFields(logx.Fields{
		"job_id": job.ID,
		"path":   p.Path,
		"status": res.Status(),
	}).Info("parse job finished")
	return json.Marshal(res)
}
