package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskArticlesAutoPublish promotes every approved article to published.
	TaskArticlesAutoPublish = "articles:auto_publish"
)

// Sweep triggers recorded in logs.
const (
	TriggerCron    = "cron"
	TriggerManual  = "manual"
	TriggerStartup = "startup"
	TriggerTicker  = "ticker"
)

// AutoPublishPayload describes who asked for a sweep.
type AutoPublishPayload struct {
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewAutoPublishTask constructs the Asynq task for an auto-publish sweep.
func NewAutoPublishTask(trigger string) (*asynq.Task, error) {
	if trigger == "" {
		trigger = TriggerCron
	}
	data, err := json.Marshal(AutoPublishPayload{Trigger: trigger, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArticlesAutoPublish, data), nil
}
