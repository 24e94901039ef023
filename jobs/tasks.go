package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskRoleExpiryNotice scans for role assignments about to expire and
	// notifies their holders.
	TaskRoleExpiryNotice = "rbac:expiry_notice"
	// TaskCatalogResync re-derives the permission catalog and refreshes the
	// wildcard role permission sets against it.
	TaskCatalogResync = "catalog:resync"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: integrate with SMTP relay.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// ExpiryNoticePayload configures one expiry scan.
type ExpiryNoticePayload struct {
	// WindowHours is how far ahead the scan looks. Zero means the default
	// window.
	WindowHours int `json:"window_hours,omitempty"`
}

// NewExpiryNoticeTask constructs a role expiry scan task.
func NewExpiryNoticeTask(payload ExpiryNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoleExpiryNotice, data), nil
}

// NewCatalogResyncTask constructs a catalog resync task.
func NewCatalogResyncTask() *asynq.Task {
	return asynq.NewTask(TaskCatalogResync, nil)
}
