package cron

import (
	"context"
	"time"

	"github.com/cmlabs-hris/employee-directory/internal/pkg/metrics"
)

const storeGCJob = "badger_value_log_gc"

// GarbageCollector is implemented by stores that reclaim space in the background.
type GarbageCollector interface {
	RunGC(ctx context.Context) error
}

type StoreJobs struct {
	gc GarbageCollector
}

func NewStoreJobs(gc GarbageCollector) *StoreJobs {
	return &StoreJobs{gc: gc}
}

func (j *StoreJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob(storeGCJob, interval, j.CollectGarbage)
}

// CollectGarbage runs one value log GC pass and records its outcome.
func (j *StoreJobs) CollectGarbage(ctx context.Context) error {
	err := j.gc.RunGC(ctx)
	metrics.RecordStoreGC(err)
	return err
}
