package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tchtranslate/portal/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with every table migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func day(year int, month time.Month, d, hour int) time.Time {
	return time.Date(year, month, d, hour, 0, 0, 0, time.UTC)
}

func seedProject(t *testing.T, db *gorm.DB, p models.Project) models.Project {
	t.Helper()
	if p.Status == "" {
		p.Status = models.StatusReceived
	}
	if p.Tenant == "" {
		p.Tenant = "acme"
	}
	if p.TimeLine.IsZero() {
		p.TimeLine = p.Created.Add(DefaultTimeLine)
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p
}

func seedUser(t *testing.T, db *gorm.DB, u models.User) models.User {
	t.Helper()
	if u.Email == "" {
		u.Email = strings.ToLower(u.Name) + "@example.com"
	}
	if u.ClaimsVersion == 0 {
		u.ClaimsVersion = 1
	}
	u.IsActive = true
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func strPtr(s string) *string { return &s }

var (
	adminCaller  = Caller{UID: "admin-1", Role: models.RoleAdmin, Tenant: "tch", Department: models.DepartmentAll}
	clientCaller = Caller{UID: "client-1", Role: models.RoleClient, Tenant: "acme", Department: "Legal"}
)

// memoryBlobs is an in-process BlobStore.
type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	failOn  map[string]bool
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: map[string][]byte{}, failOn: map[string]bool{}}
}

func (m *memoryBlobs) Put(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectPath] = buf.Bytes()
	return nil
}

func (m *memoryBlobs) Remove(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[objectPath] {
		return errors.New("remove failed")
	}
	delete(m.objects, objectPath)
	m.removed = append(m.removed, objectPath)
	return nil
}

func (m *memoryBlobs) PresignedURL(ctx context.Context, objectPath string) (string, error) {
	return "https://blobs.test" + objectPath, nil
}

func (m *memoryBlobs) has(objectPath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectPath]
	return ok
}

// recordingQueue keeps enqueued tasks instead of running them.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []*BlobCleanupTask
}

func (q *recordingQueue) Enqueue(task *BlobCleanupTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
