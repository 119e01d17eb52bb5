package models

import "time"

// JobLock claims one run of a scheduled job. The unique (job, run_key)
// pair lets a single replica take each run.
type JobLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Job       string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"job"`
	RunKey    string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"runKey"`
	Holder    string    `gorm:"size:100" json:"holder"`
	LockedAt  time.Time `json:"lockedAt"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
}

func (JobLock) TableName() string { return "job_locks" }
