package queue

import (
	"context"
	"fmt"
)

// Memory is the in-process queue used by the worker binary and tests.
// It redelivers a job once when the handler fails, which is enough to
// exercise the at-least-once contract without a broker.
type Memory struct {
	jobs chan delivery
}

type delivery struct {
	job       RunJob
	attempted bool
}

func NewMemory(buffer int) *Memory {
	if buffer < 1 {
		buffer = 1
	}
	return &Memory{jobs: make(chan delivery, buffer)}
}

func (m *Memory) Publish(ctx context.Context, job RunJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	select {
	case m.jobs <- delivery{job: job}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue full")
	}
}

func (m *Memory) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-m.jobs:
			if err := handler(ctx, d.job); err != nil && !d.attempted {
				select {
				case m.jobs <- delivery{job: d.job, attempted: true}:
				default:
					// Queue full: the redelivery is dropped, matching a
					// broker with a bounded dead-letter buffer.
				}
			}
		}
	}
}
