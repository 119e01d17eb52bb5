package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterService keeps advisory totals such as the number of projects. The
// values feed page-count estimates only; they are never a uniqueness source
// and may drift under concurrent deletes, including below zero.
type CounterService struct {
	db *gorm.DB
}

func NewCounterService(db *gorm.DB) *CounterService {
	return &CounterService{db: db}
}

// WithTx returns a CounterService writing through tx.
func (s *CounterService) WithTx(tx *gorm.DB) *CounterService {
	return &CounterService{db: tx}
}

func (s *CounterService) Increment(ctx context.Context, key string) error {
	return s.add(ctx, key, 1)
}

func (s *CounterService) Decrement(ctx context.Context, key string) error {
	return s.add(ctx, key, -1)
}

// Read returns the counter value; a counter never written reads as 0.
func (s *CounterService) Read(ctx context.Context, key string) (int64, error) {
	var c models.Counter
	err := s.db.WithContext(ctx).Where(&models.Counter{Key: key}).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", key, err)
	}
	return c.Value, nil
}

func (s *CounterService) add(ctx context.Context, key string, delta int64) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value": gorm.Expr("counters.value + ?", delta),
		}),
	}).Create(&models.Counter{Key: key, Value: delta}).Error
	if err != nil {
		return fmt.Errorf("update counter %s: %w", key, err)
	}
	return nil
}

// Reconcile recounts the projects table and overwrites the projects counter.
func (s *CounterService) Reconcile(ctx context.Context, key string) (int64, error) {
	if key != models.CounterProjects {
		return 0, fmt.Errorf("counter %q cannot be reconciled", key)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.Counter{Key: key, Value: total}).Error
	if err != nil {
		return 0, fmt.Errorf("store counter %s: %w", key, err)
	}
	return total, nil
}

// CounterReconciler periodically corrects drift in the projects counter.
type CounterReconciler struct {
	counters *CounterService
	spec     string
	locker   *JobLocker
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

const (
	reconcileJob     = "counter_reconcile"
	reconcileLockTTL = 10 * time.Minute
)

func NewCounterReconciler(counters *CounterService, spec string) *CounterReconciler {
	return &CounterReconciler{counters: counters, spec: spec, now: time.Now}
}

// WithLocker makes each scheduled run claim a job lock first, so only one
// of several replicas reconciles.
func (r *CounterReconciler) WithLocker(l *JobLocker) *CounterReconciler {
	r.locker = l
	return r
}

// Start schedules the job; an empty spec leaves reconciliation off.
func (r *CounterReconciler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.spec == "" || r.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(r.spec, r.run); err != nil {
		return fmt.Errorf("schedule counter reconcile %q: %w", r.spec, err)
	}
	c.Start()
	r.cron = c
	logger.Info().Str("cron", r.spec).Msg("[Counter] reconcile scheduler started")
	return nil
}

func (r *CounterReconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		<-r.cron.Stop().Done()
		r.cron = nil
	}
}

func (r *CounterReconciler) run() {
	if _, err := r.runOnce(context.Background()); err != nil {
		logger.Error().Err(err).Msg("[Counter] reconcile failed")
	}
}

// runOnce reconciles unless another replica holds this minute's run.
func (r *CounterReconciler) runOnce(ctx context.Context) (bool, error) {
	if r.locker != nil {
		runKey := r.now().UTC().Truncate(time.Minute).Format(time.RFC3339)
		ok, err := r.locker.TryAcquire(ctx, reconcileJob, runKey, reconcileLockTTL)
		if err != nil {
			return false, err
		}
		if !ok {
			logger.Debug().Str("run", runKey).Msg("[Counter] reconcile taken by another instance")
			return false, nil
		}
	}

	before, _ := r.counters.Read(ctx, models.CounterProjects)
	total, err := r.counters.Reconcile(ctx, models.CounterProjects)
	if err != nil {
		return false, err
	}
	if before != total {
		logger.Warn().Int64("before", before).Int64("after", total).Msg("[Counter] projects counter drift corrected")
	}
	return true, nil
}
