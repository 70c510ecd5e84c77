package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobType string

const (
	JobTypeDailySignals JobType = "DAILY_SIGNALS"
)

type JobStatus string

const (
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailure JobStatus = "FAILURE"
)

// SyncJob is the last outcome of a job type for an owner. There is one row per (owner, job type).
type SyncJob struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sync_jobs_owner_type" json:"owner_id"`
	JobType     JobType   `gorm:"type:varchar(64);not null;uniqueIndex:idx_sync_jobs_owner_type" json:"job_type"`
	Status      JobStatus `gorm:"type:varchar(16);not null" json:"status"`
	LastRun     time.Time `gorm:"not null" json:"last_run"`
	LastMessage string    `gorm:"type:text" json:"last_message"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SyncJob) TableName() string {
	return "sync_jobs"
}

func (j *SyncJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

// EmailLog is an append-only delivery record.
type EmailLog struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"owner_id"`
	Recipient string      `json:"recipient"`
	Subject   string      `gorm:"not null" json:"subject"`
	Status    EmailStatus `gorm:"type:varchar(16);not null" json:"status"`
	Error     string      `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (EmailLog) TableName() string {
	return "email_logs"
}

func (l *EmailLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
