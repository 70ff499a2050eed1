package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/newsroom-cms/newsroom/internal/articles"
	jobmetrics "github.com/newsroom-cms/newsroom/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AutoPublishJob runs the auto-publish sweep from the queue, the serve loop or the CLI.
type AutoPublishJob struct {
	Publisher *articles.AutoPublisher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewAutoPublishJob wires dependencies for the sweep handler.
func NewAutoPublishJob(publisher *articles.AutoPublisher, logger *slog.Logger, metrics *jobmetrics.Metrics) *AutoPublishJob {
	return &AutoPublishJob{Publisher: publisher, Logger: logger, Metrics: metrics}
}

// Handle processes TaskArticlesAutoPublish tasks. Only a failure to list approved
// articles is returned so Asynq retries; per-article failures are picked up by the
// next sweep.
func (j *AutoPublishJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Publisher == nil {
		return errors.New("auto publish: handler not configured")
	}
	var payload AutoPublishPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Trigger == "" {
		payload.Trigger = TriggerCron
	}
	return j.Run(ctx, payload.Trigger).Err
}

// Run executes one sweep and records its metrics.
func (j *AutoPublishJob) Run(ctx context.Context, trigger string) articles.SweepReport {
	tracker := j.metrics().Track(TaskArticlesAutoPublish)
	j.logger().InfoContext(ctx, "starting auto-publish sweep", slog.String("trigger", trigger))

	report := j.Publisher.Sweep(ctx)
	j.metrics().AddSweep(report.Published(), report.Failed())
	_ = tracker.End(report.Err)
	return report
}

func (j *AutoPublishJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskArticlesAutoPublish))
	}
	return slog.Default().With(slog.String("job", TaskArticlesAutoPublish))
}

func (j *AutoPublishJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
