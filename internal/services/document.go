package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/pkg/logger"
	"github.com/tchtranslate/portal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrDocumentNotFound  = response.NewNotFound("document not found")
	ErrInvalidCategory   = response.NewBadRequest("unknown document category")
	ErrParentRequired    = response.NewBadRequest("target documents need a source document and a language")
	ErrCategoryForbidden = response.NewForbidden("your role cannot upload this kind of document")
	ErrDocumentLocked    = response.NewConflict("source documents can only change while the project is Received")
	ErrEmptyUpload       = response.NewBadRequest("file is empty")
)

// FileUpload is one file received from a client.
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

type UploadDocumentRequest struct {
	Category string   `form:"category" binding:"required"`
	ParentID string   `form:"parentId"`
	Language string   `form:"language"`
	Target   []string `form:"target"`
}

// DocumentTree is a top-level document with the target documents filed
// under it.
type DocumentTree struct {
	models.Document
	Targets []models.Document `json:"targets"`
}

type DocumentService struct {
	db       *gorm.DB
	blobs    BlobStore
	projects *ProjectService
	queue    TaskQueue
	loc      *time.Location
	now      func() time.Time
}

func NewDocumentService(db *gorm.DB, blobs BlobStore, projects *ProjectService, queue TaskQueue, loc *time.Location) *DocumentService {
	if loc == nil {
		loc = time.Local
	}
	return &DocumentService{db: db, blobs: blobs, projects: projects, queue: queue, loc: loc, now: time.Now}
}

// canUpload reports whether role may file documents of category.
func canUpload(role, category string) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return category == models.CategorySource
	case models.RoleTranslator:
		return category != models.CategorySource
	}
	return false
}

// Upload stores f for the project and records it. Source files are renamed
// {requestNumber}-{code}-{name}; target files hang under their source
// document.
func (s *DocumentService) Upload(ctx context.Context, projectID string, req *UploadDocumentRequest, f *FileUpload, caller Caller) (*models.Document, error) {
	if !models.IsValidCategory(req.Category) {
		return nil, ErrInvalidCategory
	}
	if !canUpload(caller.Role, req.Category) {
		return nil, ErrCategoryForbidden
	}
	if f == nil || f.Size <= 0 {
		return nil, ErrEmptyUpload
	}
	if s.blobs == nil {
		return nil, ErrStorageDisabled
	}

	project, err := s.projects.Get(ctx, projectID, caller)
	if err != nil {
		return nil, err
	}
	if req.Category == models.CategorySource && !caller.IsAdmin() && project.Status != models.StatusReceived {
		return nil, ErrDocumentLocked
	}

	doc := &models.Document{
		ProjectID: project.ID,
		Category:  req.Category,
		Size:      f.Size,
	}

	fileName := f.Name
	switch req.Category {
	case models.CategorySource:
		fileName = SourceFileName(project.RequestNumber, project.ProjectCode, f.Name)
		doc.Target = cleanLanguages(req.Target)
	case models.CategoryTarget:
		if req.ParentID == "" || strings.TrimSpace(req.Language) == "" {
			return nil, ErrParentRequired
		}
		parent, err := s.find(ctx, project.ID, req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.ParentID != nil {
			return nil, ErrParentRequired
		}
		doc.ParentID = &parent.ID
		doc.Language = strings.TrimSpace(req.Language)
	}

	doc.Name = cleanFileName(fileName)
	doc.Path = BuildObjectPath(project.Tenant, s.now().In(s.loc), project.ProjectCode, req.Category, fileName)

	if err := s.blobs.Put(ctx, doc.Path, f.Body, f.Size, f.ContentType); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		if doc.Category == models.CategorySource {
			return s.refreshTargetLanguage(tx, project)
		}
		return nil
	})
	if err != nil {
		if rmErr := s.blobs.Remove(ctx, doc.Path); rmErr != nil {
			logger.Warn().Err(rmErr).Str("path", doc.Path).Msg("[Documents] orphaned upload")
		}
		return nil, err
	}
	return doc, nil
}

// refreshTargetLanguage marks the project Multilingual once its source
// documents ask for more than one target language.
func (s *DocumentService) refreshTargetLanguage(tx *gorm.DB, project *models.Project) error {
	var sources []models.Document
	if err := tx.Where("project_id = ? AND category = ?", project.ID, models.CategorySource).Find(&sources).Error; err != nil {
		return err
	}
	langs := map[string]bool{}
	for _, d := range sources {
		for _, l := range d.Target {
			langs[l] = true
		}
	}
	if len(langs) <= 1 || project.TargetLanguage == models.MultilingualTarget {
		return nil
	}
	return tx.Model(&models.Project{}).Where("id = ?", project.ID).
		Update("target_language", models.MultilingualTarget).Error
}

// List returns the project's documents, targets grouped under their
// source, oldest first.
func (s *DocumentService) List(ctx context.Context, projectID string, caller Caller) ([]DocumentTree, error) {
	project, err := s.projects.Get(ctx, projectID, caller)
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	if err := s.db.WithContext(ctx).Where("project_id = ?", project.ID).
		Order("created ASC").Order("id ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return groupDocuments(docs), nil
}

func groupDocuments(docs []models.Document) []DocumentTree {
	index := map[string]int{}
	trees := []DocumentTree{}
	for _, d := range docs {
		if d.ParentID == nil {
			index[d.ID] = len(trees)
			trees = append(trees, DocumentTree{Document: d, Targets: []models.Document{}})
		}
	}
	for _, d := range docs {
		if d.ParentID == nil {
			continue
		}
		if i, ok := index[*d.ParentID]; ok {
			trees[i].Targets = append(trees[i].Targets, d)
		}
	}
	sort.SliceStable(trees, func(i, j int) bool { return trees[i].Created.Before(trees[j].Created) })
	return trees
}

// DownloadURL returns a presigned link to the stored file.
func (s *DocumentService) DownloadURL(ctx context.Context, projectID, docID string, caller Caller) (string, error) {
	if s.blobs == nil {
		return "", ErrStorageDisabled
	}
	project, err := s.projects.Get(ctx, projectID, caller)
	if err != nil {
		return "", err
	}
	doc, err := s.find(ctx, project.ID, docID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignedURL(ctx, doc.Path)
}

// Delete removes a document's stored file and then its record. Target
// documents filed under a deleted source go with it; their files are left
// to the cleanup queue.
func (s *DocumentService) Delete(ctx context.Context, projectID, docID string, caller Caller) error {
	if s.blobs == nil {
		return ErrStorageDisabled
	}
	project, err := s.projects.Get(ctx, projectID, caller)
	if err != nil {
		return err
	}
	doc, err := s.find(ctx, project.ID, docID)
	if err != nil {
		return err
	}
	if !canUpload(caller.Role, doc.Category) {
		return ErrCategoryForbidden
	}
	if doc.Category == models.CategorySource && !caller.IsAdmin() && project.Status != models.StatusReceived {
		return ErrDocumentLocked
	}

	if err := s.blobs.Remove(ctx, doc.Path); err != nil {
		return err
	}

	var childPaths []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Document{}).Where("parent_id = ?", doc.ID).Pluck("path", &childPaths).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", doc.ID).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		return tx.Delete(doc).Error
	})
	if err != nil {
		return err
	}

	if len(childPaths) > 0 && s.queue != nil {
		task := &BlobCleanupTask{ProjectID: project.ID, ProjectCode: project.ProjectCode, Paths: childPaths}
		if err := s.queue.Enqueue(task); err != nil {
			logger.Error().Err(err).Str("document", doc.ID).Msg("[Documents] failed to enqueue blob cleanup")
		}
	}
	return nil
}

func (s *DocumentService) find(ctx context.Context, projectID, docID string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Where("id = ? AND project_id = ?", docID, projectID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func cleanLanguages(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, raw := range in {
		// multipart forms may send one comma separated value
		for _, l := range strings.Split(raw, ",") {
			l = strings.TrimSpace(l)
			if l != "" && !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	return out
}
