package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tchtranslate/portal/internal/models"
)

type documentFixture struct {
	*projectFixture
	blobs   *memoryBlobs
	docs    *DocumentService
	project models.Project
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	pf := newProjectFixture(t)
	blobs := newMemoryBlobs()
	docs := NewDocumentService(pf.db, blobs, pf.svc, pf.queue, time.UTC)
	docs.now = func() time.Time { return day(2024, time.March, 7, 12) }
	project := seedProject(t, pf.db, models.Project{
		ProjectCode:    "TCH-030524",
		RequestNumber:  "RQ-1",
		Created:        day(2024, time.March, 5, 9),
		Department:     "Legal",
		TargetLanguage: "en",
	})
	return &documentFixture{projectFixture: pf, blobs: blobs, docs: docs, project: project}
}

func upload(name, body string) *FileUpload {
	return &FileUpload{Name: name, Size: int64(len(body)), ContentType: "application/octet-stream", Body: strings.NewReader(body)}
}

func TestDocumentService_UploadSource(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategorySource, Target: []string{"en"}}, upload("contract.pdf", "hello"), clientCaller)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	wantPath := "/acme/2024/March/TCH-030524/Source/RQ-1-TCH-030524-contract.pdf"
	if doc.Path != wantPath {
		t.Errorf("Path = %q, expected %q", doc.Path, wantPath)
	}
	if doc.Name != "RQ-1-TCH-030524-contract.pdf" {
		t.Errorf("Name = %q", doc.Name)
	}
	if !f.blobs.has(wantPath) {
		t.Error("file was not stored")
	}
}

func TestDocumentService_MultilingualTarget(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	if _, err := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategorySource, Target: []string{"en"}}, upload("a.pdf", "a"), adminCaller); err != nil {
		t.Fatal(err)
	}
	var p models.Project
	f.db.First(&p, "id = ?", f.project.ID)
	if p.TargetLanguage != "en" {
		t.Errorf("TargetLanguage = %q after one language", p.TargetLanguage)
	}

	if _, err := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategorySource, Target: []string{"fr, de"}}, upload("b.pdf", "b"), adminCaller); err != nil {
		t.Fatal(err)
	}
	f.db.First(&p, "id = ?", f.project.ID)
	if p.TargetLanguage != models.MultilingualTarget {
		t.Errorf("TargetLanguage = %q, expected %s", p.TargetLanguage, models.MultilingualTarget)
	}
}

func TestDocumentService_UploadTarget(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	src, err := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategorySource}, upload("a.pdf", "a"), adminCaller)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategoryTarget, Language: "en"}, upload("a-en.pdf", "b"), adminCaller); !errors.Is(err, ErrParentRequired) {
		t.Errorf("error = %v, expected ErrParentRequired", err)
	}

	tgt, err := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategoryTarget, ParentID: src.ID, Language: "en"}, upload("a-en.pdf", "b"), adminCaller)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if tgt.ParentID == nil || *tgt.ParentID != src.ID || tgt.Language != "en" {
		t.Errorf("target = %+v", tgt)
	}

	if _, err := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategoryTarget, ParentID: tgt.ID, Language: "en"}, upload("nested.pdf", "c"), adminCaller); !errors.Is(err, ErrParentRequired) {
		t.Errorf("targets cannot nest, got %v", err)
	}

	trees, err := f.docs.List(ctx, f.project.ID, adminCaller)
	if err != nil {
		t.Fatal(err)
	}
	if len(trees) != 1 || len(trees[0].Targets) != 1 || trees[0].Targets[0].ID != tgt.ID {
		t.Errorf("List() = %+v", trees)
	}
}

func TestDocumentService_UploadRules(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()
	translator := Caller{UID: "tr", Role: models.RoleTranslator, Tenant: "acme"}

	tests := []struct {
		name   string
		req    UploadDocumentRequest
		file   *FileUpload
		caller Caller
		want   error
	}{
		{"unknown category", UploadDocumentRequest{Category: "Invoice"}, upload("a", "a"), adminCaller, ErrInvalidCategory},
		{"client uploads glossary", UploadDocumentRequest{Category: models.CategoryGlossary}, upload("a", "a"), clientCaller, ErrCategoryForbidden},
		{"translator uploads source", UploadDocumentRequest{Category: models.CategorySource}, upload("a", "a"), translator, ErrCategoryForbidden},
		{"empty file", UploadDocumentRequest{Category: models.CategorySource}, upload("a", ""), adminCaller, ErrEmptyUpload},
		{"project not visible", UploadDocumentRequest{Category: models.CategoryMemory}, upload("a", "a"), translator, ErrProjectNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.docs.Upload(ctx, f.project.ID, &req, tt.file, tt.caller)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, expected %v", err, tt.want)
			}
		})
	}
}

func TestDocumentService_SourceLockedAfterReceived(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	src, err := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategorySource}, upload("a.pdf", "a"), clientCaller)
	if err != nil {
		t.Fatal(err)
	}
	f.db.Model(&models.Project{}).Where("id = ?", f.project.ID).Update("status", models.StatusInProgress)

	if _, err := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategorySource}, upload("b.pdf", "b"), clientCaller); !errors.Is(err, ErrDocumentLocked) {
		t.Errorf("upload error = %v, expected ErrDocumentLocked", err)
	}
	if err := f.docs.Delete(ctx, f.project.ID, src.ID, clientCaller); !errors.Is(err, ErrDocumentLocked) {
		t.Errorf("delete error = %v, expected ErrDocumentLocked", err)
	}
	if !f.blobs.has(src.Path) {
		t.Error("a refused delete must keep the file")
	}
}

func TestDocumentService_Delete(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	src, _ := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategorySource}, upload("a.pdf", "a"), adminCaller)
	tgt, _ := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategoryTarget, ParentID: src.ID, Language: "en"}, upload("a-en.pdf", "b"), adminCaller)

	if err := f.docs.Delete(ctx, f.project.ID, src.ID, adminCaller); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.blobs.has(src.Path) {
		t.Error("source file still stored")
	}
	var n int64
	f.db.Model(&models.Document{}).Where("project_id = ?", f.project.ID).Count(&n)
	if n != 0 {
		t.Errorf("documents left = %d", n)
	}
	if f.queue.count() != 1 || f.queue.tasks[0].Paths[0] != tgt.Path {
		t.Errorf("expected cleanup of the target file, got %+v", f.queue.tasks)
	}

	if err := f.docs.Delete(ctx, f.project.ID, src.ID, adminCaller); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("error = %v, expected ErrDocumentNotFound", err)
	}
}

func TestDocumentService_DeleteBlobFailureKeepsRecord(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	src, _ := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategorySource}, upload("a.pdf", "a"), adminCaller)
	f.blobs.failOn[src.Path] = true

	if err := f.docs.Delete(ctx, f.project.ID, src.ID, adminCaller); err == nil {
		t.Fatal("expected the storage error")
	}
	var n int64
	f.db.Model(&models.Document{}).Where("id = ?", src.ID).Count(&n)
	if n != 1 {
		t.Error("record must survive a failed file removal")
	}
}

func TestDocumentService_DownloadURL(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	src, _ := f.docs.Upload(ctx, f.project.ID, &UploadDocumentRequest{Category: models.CategorySource}, upload("a.pdf", "a"), adminCaller)
	url, err := f.docs.DownloadURL(ctx, f.project.ID, src.ID, clientCaller)
	if err != nil {
		t.Fatalf("DownloadURL() error = %v", err)
	}
	if url != "https://blobs.test"+src.Path {
		t.Errorf("url = %q", url)
	}

	noStorage := NewDocumentService(f.db, nil, f.svc, f.queue, time.UTC)
	if _, err := noStorage.DownloadURL(ctx, f.project.ID, src.ID, adminCaller); !errors.Is(err, ErrStorageDisabled) {
		t.Errorf("error = %v, expected ErrStorageDisabled", err)
	}
}

func TestCleanLanguages(t *testing.T) {
	got := cleanLanguages([]string{"en, fr", " de ", "en", ""})
	want := []string{"en", "fr", "de"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("cleanLanguages() = %v, expected %v", got, want)
	}
}
