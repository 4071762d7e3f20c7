package async

import (
	"context"
	"time"
)

// Job asks for the document of one infraction to be (re)generated.
type Job struct {
	InfractionID int64
	SubmittedAt  time.Time
	TraceID      string
}

// JobResult reports the outcome of a processed job.
type JobResult struct {
	Job      Job
	Path     string
	Warnings []string
	Err      error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
