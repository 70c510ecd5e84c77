package dto

import (
	"time"

	"apexpulse/internal/entity"

	"github.com/google/uuid"
)

const (
	TriggerScheduler = "scheduler"
	TriggerHTTP      = "http"
	TriggerCLI       = "cli"
)

// RunScope selects the tenants of a batch run. A nil OwnerID means every tenant.
type RunScope struct {
	OwnerID *uuid.UUID
	Trigger string
}

// TenantReport is the outcome of one tenant pipeline.
type TenantReport struct {
	OwnerID       uuid.UUID        `json:"owner_id"`
	Status        entity.JobStatus `json:"status"`
	FailedStep    string           `json:"failed_step,omitempty"`
	Message       string           `json:"message"`
	Synced        int              `json:"synced"`
	Skipped       int              `json:"skipped"`
	TradesCreated int              `json:"trades_created"`
	Signals       int              `json:"signals"`
	SignalSource  string           `json:"signal_source,omitempty"`
	EmailStatus   string           `json:"email_status,omitempty"`
}

// RunReport is the outcome of a batch run.
type RunReport struct {
	RunID      string         `json:"run_id"`
	Trigger    string         `json:"trigger"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Universe   int            `json:"universe"`
	Resolved   int            `json:"resolved"`
	Tenants    []TenantReport `json:"tenants"`
}

// Failed counts tenants that did not finish successfully.
func (r *RunReport) Failed() int {
	n := 0
	for _, t := range r.Tenants {
		if t.Status != entity.JobStatusSuccess {
			n++
		}
	}
	return n
}
