package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tchtranslate/portal/internal/models"
	"gorm.io/gorm"
)

type projectFixture struct {
	db       *gorm.DB
	svc      *ProjectService
	counters *CounterService
	tenants  *TenantService
	queue    *recordingQueue
}

func newProjectFixture(t *testing.T) *projectFixture {
	t.Helper()
	db := newTestDB(t)
	tenants := NewTenantService(db, nil)
	if _, err := tenants.Create(context.Background(), &CreateTenantRequest{Name: "Acme", Slug: "acme", Translators: models.TranslatorsAdmin}); err != nil {
		t.Fatal(err)
	}
	counters := NewCounterService(db)
	queue := &recordingQueue{}
	svc := NewProjectService(db, NewCountCodeAssigner(time.UTC), counters, tenants, queue)
	svc.now = func() time.Time { return day(2024, time.March, 5, 14) }
	return &projectFixture{db: db, svc: svc, counters: counters, tenants: tenants, queue: queue}
}

func (f *projectFixture) projectCount(t *testing.T) int64 {
	t.Helper()
	v, err := f.counters.Read(context.Background(), models.CounterProjects)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestProjectService_Create(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	req := &CreateProjectRequest{
		RequestNumber:  " RQ-1 ",
		SourceLanguage: "es",
		TargetLanguage: "en",
		Tenant:         "someone-else",
		Status:         models.StatusCompleted,
	}
	p, err := f.svc.Create(ctx, req, clientCaller)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if p.ProjectCode != "TCH-030524" {
		t.Errorf("ProjectCode = %q, expected TCH-030524", p.ProjectCode)
	}
	if p.Status != models.StatusReceived {
		t.Errorf("Status = %q, clients cannot pick a status", p.Status)
	}
	if p.Tenant != "acme" || p.Department != "Legal" {
		t.Errorf("scope = %s/%s, expected the caller's acme/Legal", p.Tenant, p.Department)
	}
	if p.RequestNumber != "RQ-1" {
		t.Errorf("RequestNumber = %q", p.RequestNumber)
	}
	if want := p.Created.Add(DefaultTimeLine); !p.TimeLine.Equal(want) {
		t.Errorf("TimeLine = %v, expected %v", p.TimeLine, want)
	}
	if p.CreatedBy != clientCaller.UID {
		t.Errorf("CreatedBy = %q", p.CreatedBy)
	}
	if n := f.projectCount(t); n != 1 {
		t.Errorf("counter = %d, expected 1", n)
	}

	second, err := f.svc.Create(ctx, &CreateProjectRequest{SourceLanguage: "es", TargetLanguage: "fr"}, clientCaller)
	if err != nil {
		t.Fatal(err)
	}
	if second.ProjectCode != "TCH-030524-B" {
		t.Errorf("second ProjectCode = %q, expected TCH-030524-B", second.ProjectCode)
	}
	if n := f.projectCount(t); n != 2 {
		t.Errorf("counter = %d, expected 2", n)
	}
}

func TestProjectService_CreateTimeLine(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	created := day(2024, time.March, 1, 8)

	tests := []struct {
		name     string
		timeLine *time.Time
		expected time.Time
	}{
		{"missing", nil, created.Add(DefaultTimeLine)},
		{"before created", func() *time.Time { v := created.Add(-time.Hour); return &v }(), created.Add(DefaultTimeLine)},
		{"kept", func() *time.Time { v := created.Add(48 * time.Hour); return &v }(), created.Add(48 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &CreateProjectRequest{Created: &created, TimeLine: tt.timeLine, SourceLanguage: "es", TargetLanguage: "en", Tenant: "acme"}
			p, err := f.svc.Create(ctx, req, adminCaller)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if !p.TimeLine.Equal(tt.expected) {
				t.Errorf("TimeLine = %v, expected %v", p.TimeLine, tt.expected)
			}
		})
	}
}

func TestProjectService_CreateRules(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	base := CreateProjectRequest{SourceLanguage: "es", TargetLanguage: "en"}

	translator := Caller{UID: "tr", Role: models.RoleTranslator, Tenant: "acme"}
	if _, err := f.svc.Create(ctx, &base, translator); !errors.Is(err, ErrCreateNotAllowed) {
		t.Errorf("translator create error = %v, expected ErrCreateNotAllowed", err)
	}

	if _, err := f.svc.Create(ctx, &base, adminCaller); err != nil {
		t.Errorf("admin without tenant falls back to own tenant, got %v", err)
	}

	noTenant := Caller{UID: "c", Role: models.RoleClient}
	if _, err := f.svc.Create(ctx, &base, noTenant); !errors.Is(err, ErrTenantRequired) {
		t.Errorf("error = %v, expected ErrTenantRequired", err)
	}

	withStatus := base
	withStatus.Tenant = "acme"
	withStatus.Status = models.StatusQuoted
	p, err := f.svc.Create(ctx, &withStatus, adminCaller)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.StatusQuoted || p.Tenant != "acme" {
		t.Errorf("admin create = %s/%s", p.Status, p.Tenant)
	}

	withStatus.Status = "Lost"
	if _, err := f.svc.Create(ctx, &withStatus, adminCaller); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("error = %v, expected ErrInvalidStatus", err)
	}
}

func TestProjectService_Get(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	tr := "tr-1"
	p := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 1, 8), Department: "Legal", TranslatorID: &tr})

	tests := []struct {
		name   string
		caller Caller
		found  bool
	}{
		{"admin", adminCaller, true},
		{"client same department", clientCaller, true},
		{"client other department", Caller{UID: "c", Role: models.RoleClient, Tenant: "acme", Department: "Sales"}, false},
		{"client all departments", Caller{UID: "c", Role: models.RoleClient, Tenant: "acme", Department: models.DepartmentAll}, true},
		{"other tenant", Caller{UID: "c", Role: models.RoleClient, Tenant: "globex"}, false},
		{"assigned translator", Caller{UID: tr, Role: models.RoleTranslator, Tenant: "acme"}, true},
		{"other translator", Caller{UID: "tr-2", Role: models.RoleTranslator, Tenant: "acme"}, false},
		{"unauthorized", Caller{UID: "u", Role: models.RoleUnauthorized, Tenant: "acme"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Get(ctx, p.ID, tt.caller)
			if tt.found && err != nil {
				t.Errorf("Get() error = %v", err)
			}
			if !tt.found && !errors.Is(err, ErrProjectNotFound) {
				t.Errorf("error = %v, expected ErrProjectNotFound", err)
			}
		})
	}
}

func TestAvailableStatuses(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		tenant   *models.Tenant
		expected []string
	}{
		{"admin sees translators", models.RoleAdmin, &models.Tenant{Translators: models.TranslatorsAdmin}, models.AllStatuses},
		{"admin client mode", models.RoleAdmin, &models.Tenant{Translators: models.TranslatorsClient}, models.AllStatuses},
		{"admin hidden translators", models.RoleAdmin, &models.Tenant{Translators: models.TranslatorsDisabled}, models.NoTranslatorStatuses},
		{"admin unknown tenant", models.RoleAdmin, nil, models.NoTranslatorStatuses},
		{"translator", models.RoleTranslator, nil, models.TranslatorStatuses},
		{"client", models.RoleClient, &models.Tenant{Translators: models.TranslatorsClient}, []string{}},
		{"unauthorized", models.RoleUnauthorized, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AvailableStatuses(tt.role, tt.tenant); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("AvailableStatuses() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestProjectService_UpdateStatus(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	tr := seedUser(t, f.db, models.User{Name: "Tina", Role: models.RoleTranslator, Tenant: "acme"})
	translator := Caller{UID: tr.ID, Role: models.RoleTranslator, Tenant: "acme", Department: models.DepartmentAll}

	assigned := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 1, 8), Status: models.StatusAssigned, TranslatorID: &tr.ID})
	other := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 2, 8), Status: models.StatusAssigned, TranslatorID: strPtr("tr-x")})

	p, err := f.svc.UpdateStatus(ctx, assigned.ID, models.StatusInProgress, translator)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if p.Status != models.StatusInProgress {
		t.Errorf("Status = %q", p.Status)
	}

	if _, err := f.svc.UpdateStatus(ctx, assigned.ID, models.StatusArchived, translator); !errors.Is(err, ErrStatusNotAllowed) {
		t.Errorf("error = %v, expected ErrStatusNotAllowed", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, other.ID, models.StatusCompleted, translator); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("error = %v, expected ErrProjectNotFound", err)
	}
	wholeTenant := clientCaller
	wholeTenant.Department = models.DepartmentAll
	if _, err := f.svc.UpdateStatus(ctx, assigned.ID, models.StatusCompleted, wholeTenant); !errors.Is(err, ErrStatusNotAllowed) {
		t.Errorf("client error = %v, expected ErrStatusNotAllowed", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, assigned.ID, "Lost", adminCaller); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("error = %v, expected ErrInvalidStatus", err)
	}

	p, err = f.svc.UpdateStatus(ctx, assigned.ID, models.StatusReceived, adminCaller)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.StatusReceived || p.TranslatorID != nil {
		t.Errorf("back to Received = %s translator %v, expected translator released", p.Status, p.TranslatorID)
	}
}

func TestProjectService_BulkUpdateStatusAllOrNothing(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	a := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 1, 8)})
	b := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 2, 8)})
	foreign := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 3, 8), Tenant: "globex"})

	res, err := f.svc.BulkUpdateStatus(ctx, []string{a.ID, b.ID, a.ID}, models.StatusOnHold, adminCaller)
	if err != nil {
		t.Fatalf("BulkUpdateStatus() error = %v", err)
	}
	if res.Updated != 2 || res.Status != models.StatusOnHold {
		t.Errorf("result = %+v", res)
	}

	// globex has no tenant record, so Assigned is not offered there
	_, err = f.svc.BulkUpdateStatus(ctx, []string{a.ID, foreign.ID}, models.StatusAssigned, adminCaller)
	if !errors.Is(err, ErrStatusNotAllowed) {
		t.Fatalf("error = %v, expected ErrStatusNotAllowed", err)
	}
	for _, id := range []string{a.ID, foreign.ID} {
		var p models.Project
		f.db.First(&p, "id = ?", id)
		if p.Status == models.StatusAssigned {
			t.Errorf("project %s changed despite the failed batch", id)
		}
	}

	if _, err := f.svc.BulkUpdateStatus(ctx, []string{a.ID, "missing"}, models.StatusOnHold, adminCaller); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("error = %v, expected ErrProjectNotFound", err)
	}
	if _, err := f.svc.BulkUpdateStatus(ctx, nil, models.StatusOnHold, adminCaller); !errors.Is(err, ErrNoProjectIDs) {
		t.Errorf("error = %v, expected ErrNoProjectIDs", err)
	}
}

func TestProjectService_AssignTranslator(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	tr := seedUser(t, f.db, models.User{Name: "Tina", Role: models.RoleTranslator, Tenant: "acme"})
	client := seedUser(t, f.db, models.User{Name: "Carl", Role: models.RoleClient, Tenant: "acme"})
	p := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 1, 8)})

	got, err := f.svc.AssignTranslator(ctx, p.ID, &tr.ID)
	if err != nil {
		t.Fatalf("AssignTranslator() error = %v", err)
	}
	if got.Status != models.StatusAssigned || got.TranslatorID == nil || *got.TranslatorID != tr.ID {
		t.Errorf("after assign = %s %v", got.Status, got.TranslatorID)
	}

	if _, err := f.svc.AssignTranslator(ctx, p.ID, &client.ID); !errors.Is(err, ErrTranslatorNotFound) {
		t.Errorf("error = %v, expected ErrTranslatorNotFound", err)
	}

	got, err = f.svc.AssignTranslator(ctx, p.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusReceived || got.TranslatorID != nil {
		t.Errorf("after clear = %s %v", got.Status, got.TranslatorID)
	}

	if _, err := f.svc.AssignTranslator(ctx, "missing", &tr.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("error = %v, expected ErrProjectNotFound", err)
	}
}

func TestProjectService_FieldUpdates(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	p := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 1, 8), Department: "Legal"})

	got, err := f.svc.UpdateBilling(ctx, p.ID, 120.5)
	if err != nil || got.Billed != 120.5 {
		t.Errorf("UpdateBilling() = %v, %v", got, err)
	}
	if _, err := f.svc.UpdateBilling(ctx, p.ID, -1); !errors.Is(err, ErrNegativeValue) {
		t.Errorf("error = %v, expected ErrNegativeValue", err)
	}
	if _, err := f.svc.UpdateBilling(ctx, "missing", 1); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("error = %v, expected ErrProjectNotFound", err)
	}

	got, err = f.svc.UpdateWordCount(ctx, p.ID, 1500, adminCaller)
	if err != nil || got.WordCount != 1500 {
		t.Errorf("UpdateWordCount() = %v, %v", got, err)
	}
	if _, err := f.svc.UpdateWordCount(ctx, p.ID, 10, clientCaller); !errors.Is(err, ErrWordCountForbidden) {
		t.Errorf("error = %v, expected ErrWordCountForbidden", err)
	}

	got, err = f.svc.UpdateComments(ctx, p.ID, "please hurry", clientCaller)
	if err != nil || got.Comments != "please hurry" {
		t.Errorf("UpdateComments() = %v, %v", got, err)
	}
}

func TestProjectService_DeleteGuard(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	p := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 1, 8), Status: models.StatusInProgress, Department: "Legal"})
	f.db.Create(&models.Document{ProjectID: p.ID, Name: "a.docx", Path: "/acme/a.docx", Category: models.CategorySource})
	_ = f.counters.Increment(ctx, models.CounterProjects)

	if err := f.svc.Delete(ctx, p.ID, clientCaller); !errors.Is(err, ErrDeleteNotAllowed) {
		t.Fatalf("error = %v, expected ErrDeleteNotAllowed", err)
	}
	if f.queue.count() != 0 {
		t.Error("a refused delete must not touch stored files")
	}
	if n := f.projectCount(t); n != 1 {
		t.Errorf("counter = %d, expected 1", n)
	}
	var docs int64
	f.db.Model(&models.Document{}).Count(&docs)
	if docs != 1 {
		t.Errorf("documents = %d, expected 1", docs)
	}

	translator := Caller{UID: "tr", Role: models.RoleTranslator, Tenant: "acme"}
	if err := f.svc.Delete(ctx, p.ID, translator); !errors.Is(err, ErrDeleteForbidden) {
		t.Errorf("error = %v, expected ErrDeleteForbidden", err)
	}
}

func TestProjectService_Delete(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, &CreateProjectRequest{SourceLanguage: "es", TargetLanguage: "en"}, clientCaller)
	if err != nil {
		t.Fatal(err)
	}
	src := models.Document{ProjectID: p.ID, Name: "a.docx", Path: "/acme/2024/March/" + p.ProjectCode + "/Source/a.docx", Category: models.CategorySource}
	f.db.Create(&src)
	f.db.Create(&models.Document{ProjectID: p.ID, ParentID: &src.ID, Name: "a-en.docx", Path: "/acme/2024/March/" + p.ProjectCode + "/Target/a-en.docx", Category: models.CategoryTarget})

	if err := f.svc.Delete(ctx, p.ID, clientCaller); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := f.svc.Get(ctx, p.ID, adminCaller); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("project still readable: %v", err)
	}
	var docs int64
	f.db.Model(&models.Document{}).Where("project_id = ?", p.ID).Count(&docs)
	if docs != 0 {
		t.Errorf("documents left = %d", docs)
	}
	if n := f.projectCount(t); n != 0 {
		t.Errorf("counter = %d, expected 0 after create and delete", n)
	}
	if f.queue.count() != 1 {
		t.Fatalf("enqueued %d cleanup tasks, expected 1", f.queue.count())
	}
	if task := f.queue.tasks[0]; task.ProjectCode != p.ProjectCode || len(task.Paths) != 2 {
		t.Errorf("task = %+v", task)
	}
}

func TestProjectService_DeleteWithoutDocuments(t *testing.T) {
	f := newProjectFixture(t)
	p := seedProject(t, f.db, models.Project{Created: day(2024, time.March, 1, 8)})

	if err := f.svc.Delete(context.Background(), p.ID, adminCaller); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.queue.count() != 0 {
		t.Error("nothing to clean up, expected no task")
	}
}

func TestProjectService_StatusOptions(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	opts, err := f.svc.StatusOptions(ctx, adminCaller, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(opts, models.AllStatuses) {
		t.Errorf("acme shows translators to admins, got %v", opts)
	}

	opts, _ = f.svc.StatusOptions(ctx, adminCaller, "unknown")
	if !reflect.DeepEqual(opts, models.NoTranslatorStatuses) {
		t.Errorf("unknown tenant = %v", opts)
	}
}
