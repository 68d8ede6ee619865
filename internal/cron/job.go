package cron

import "context"

// Job is one unit of maintenance work. Name labels its logs and metrics and
// must be unique within a Service.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type funcJob struct {
	name string
	run  func(context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// JobFunc adapts a plain function to Job.
func JobFunc(name string, run func(context.Context) error) Job {
	return funcJob{name: name, run: run}
}
