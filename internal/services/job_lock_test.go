package services

import (
	"context"
	"testing"
	"time"

	"github.com/tchtranslate/portal/internal/models"
)

func TestJobLocker_TryAcquire(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 3, 3, 0, 0, 0, time.UTC)

	first := NewJobLocker(db)
	first.now = func() time.Time { return now }
	second := NewJobLocker(db)
	second.holder = "other"
	second.now = first.now

	tests := []struct {
		name     string
		locker   *JobLocker
		runKey   string
		expected bool
	}{
		{"first claim", first, "03:00", true},
		{"same run from another replica", second, "03:00", false},
		{"same run again", first, "03:00", false},
		{"next run", second, "03:01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.locker.TryAcquire(ctx, "job", tt.runKey, time.Minute)
			if err != nil {
				t.Fatalf("TryAcquire() error = %v", err)
			}
			if ok != tt.expected {
				t.Errorf("TryAcquire() = %v, expected %v", ok, tt.expected)
			}
		})
	}
}

func TestJobLocker_ExpiredLockIsReleased(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 3, 3, 0, 0, 0, time.UTC)

	l := NewJobLocker(db)
	l.now = func() time.Time { return now }
	if ok, _ := l.TryAcquire(ctx, "job", "run", time.Minute); !ok {
		t.Fatal("expected first claim to succeed")
	}

	now = now.Add(2 * time.Minute)
	ok, err := l.TryAcquire(ctx, "job", "run", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expired lock should be claimable again")
	}

	var count int64
	db.Model(&models.JobLock{}).Count(&count)
	if count != 1 {
		t.Errorf("lock rows = %d, expected 1", count)
	}
}
