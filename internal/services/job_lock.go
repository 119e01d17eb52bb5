package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tchtranslate/portal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobLocker lets replicas sharing one database agree on who runs a
// scheduled job.
type JobLocker struct {
	db     *gorm.DB
	holder string
	now    func() time.Time
}

func NewJobLocker(db *gorm.DB) *JobLocker {
	host, _ := os.Hostname()
	return &JobLocker{
		db:     db,
		holder: fmt.Sprintf("%s-%d", host, os.Getpid()),
		now:    time.Now,
	}
}

// TryAcquire claims runKey of job until ttl passes. It returns false when
// another holder already claimed the same run.
func (l *JobLocker) TryAcquire(ctx context.Context, job, runKey string, ttl time.Duration) (bool, error) {
	now := l.now()
	db := l.db.WithContext(ctx)

	if err := db.Where("expires_at < ?", now).Delete(&models.JobLock{}).Error; err != nil {
		return false, fmt.Errorf("expire job locks: %w", err)
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.JobLock{
		Job:       job,
		RunKey:    runKey,
		Holder:    l.holder,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if result.Error != nil {
		return false, fmt.Errorf("claim %s/%s: %w", job, runKey, result.Error)
	}
	return result.RowsAffected == 1, nil
}
