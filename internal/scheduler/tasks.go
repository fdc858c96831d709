package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRoutingAttempt = "routing.attempt"

const TaskNotificationOutboxDue = "notification.outbox.due"

type RoutingAttemptPayload struct {
	ComplaintID string `json:"complaintId"`
}

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

func NewRoutingAttemptTask(payload RoutingAttemptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoutingAttempt, data), nil
}

func ParseRoutingAttemptPayload(task *asynq.Task) (RoutingAttemptPayload, error) {
	var payload RoutingAttemptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RoutingAttemptPayload{}, err
	}
	return payload, nil
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}
