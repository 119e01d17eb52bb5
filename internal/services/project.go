package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/pkg/logger"
	"github.com/tchtranslate/portal/pkg/response"
	"gorm.io/gorm"
)

// DefaultTimeLine is the delivery window given to projects submitted
// without a usable deadline.
const DefaultTimeLine = 5 * 24 * time.Hour

var (
	ErrProjectNotFound    = response.NewNotFound("project not found")
	ErrDeleteNotAllowed   = response.NewConflict("only projects in Received status can be deleted")
	ErrInvalidStatus      = response.NewBadRequest("unknown project status")
	ErrStatusNotAllowed   = response.NewForbidden("status not available for your role")
	ErrNotAssigned        = response.NewForbidden("project is not assigned to you")
	ErrCreateNotAllowed   = response.NewForbidden("your role cannot submit projects")
	ErrTranslatorNotFound = response.NewBadRequest("translator not found")
	ErrNegativeValue      = response.NewBadRequest("value must not be negative")
	ErrNoProjectIDs       = response.NewBadRequest("ids must not be empty")
	ErrTenantRequired     = response.NewBadRequest("tenant is required")
	ErrDeleteForbidden    = response.NewForbidden("your role cannot delete projects")
	ErrWordCountForbidden = response.NewForbidden("word count is set by staff")
)

// AvailableStatuses is the set of statuses role may set on projects of
// tenant. Admins get every status unless the tenant hides translators from
// them; translators get the working statuses; everybody else gets none.
func AvailableStatuses(role string, tenant *models.Tenant) []string {
	switch role {
	case models.RoleAdmin:
		if tenant.ShowsTranslatorsTo(role) {
			return copyStrings(models.AllStatuses)
		}
		return copyStrings(models.NoTranslatorStatuses)
	case models.RoleTranslator:
		return copyStrings(models.TranslatorStatuses)
	}
	return []string{}
}

type ProjectService struct {
	db       *gorm.DB
	codes    CodeAssigner
	counters *CounterService
	tenants  *TenantService
	queue    TaskQueue
	now      func() time.Time
}

func NewProjectService(db *gorm.DB, codes CodeAssigner, counters *CounterService, tenants *TenantService, queue TaskQueue) *ProjectService {
	return &ProjectService{
		db:       db,
		codes:    codes,
		counters: counters,
		tenants:  tenants,
		queue:    queue,
		now:      time.Now,
	}
}

type CreateProjectRequest struct {
	RequestNumber  string     `json:"requestNumber" binding:"max=200"`
	Created        *time.Time `json:"created"`
	TimeLine       *time.Time `json:"timeLine"`
	Tenant         string     `json:"tenant" binding:"max=100"`
	Department     string     `json:"department" binding:"max=100"`
	SourceLanguage string     `json:"sourceLanguage" binding:"required,max=50"`
	TargetLanguage string     `json:"targetLanguage" binding:"required,max=50"`
	Status         string     `json:"status"`
	IsTranslation  bool       `json:"isTranslation"`
	IsEditing      bool       `json:"isEditing"`
	IsCertificate  bool       `json:"isCertificate"`
	IsBittext      bool       `json:"isBittext"`
	IsGlossary     bool       `json:"isGlossary"`
	IsStyleSheet   bool       `json:"isStyleSheet"`
	IsMemory       bool       `json:"isMemory"`
	IsUrgent       bool       `json:"isUrgent"`
	AdditionalInfo string     `json:"additionalInfo"`
}

type BulkStatusResult struct {
	Updated int    `json:"updated"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Create stores a new project under its correlative code and bumps the
// project counter. Non-admin callers always submit into their own tenant
// and department.
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest, caller Caller) (*models.Project, error) {
	if !caller.IsAdmin() && caller.Role != models.RoleClient {
		return nil, ErrCreateNotAllowed
	}

	created := s.now().UTC()
	if req.Created != nil && !req.Created.IsZero() {
		created = req.Created.UTC()
	}
	timeLine := created.Add(DefaultTimeLine)
	if req.TimeLine != nil && !req.TimeLine.IsZero() && !req.TimeLine.Before(created) {
		timeLine = req.TimeLine.UTC()
	}

	status := models.StatusReceived
	if caller.IsAdmin() && req.Status != "" {
		if !models.IsValidStatus(req.Status) {
			return nil, ErrInvalidStatus
		}
		status = req.Status
	}

	tenant, department := caller.Tenant, caller.Department
	if caller.IsAdmin() {
		if t := strings.TrimSpace(req.Tenant); t != "" {
			tenant = t
		}
		department = strings.TrimSpace(req.Department)
	}
	if tenant == "" {
		return nil, ErrTenantRequired
	}

	project := &models.Project{
		RequestNumber:  strings.TrimSpace(req.RequestNumber),
		Status:         status,
		Created:        created,
		TimeLine:       timeLine,
		Tenant:         tenant,
		Department:     department,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		IsTranslation:  req.IsTranslation,
		IsEditing:      req.IsEditing,
		IsCertificate:  req.IsCertificate,
		IsBittext:      req.IsBittext,
		IsGlossary:     req.IsGlossary,
		IsStyleSheet:   req.IsStyleSheet,
		IsMemory:       req.IsMemory,
		IsUrgent:       req.IsUrgent,
		AdditionalInfo: req.AdditionalInfo,
		CreatedBy:      caller.UID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.codes.Assign(ctx, tx, created)
		if err != nil {
			return err
		}
		project.ProjectCode = code
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		return s.counters.WithTx(tx).Increment(ctx, models.CounterProjects)
	})
	if err != nil {
		if errors.Is(err, ErrCodeSpaceExhausted) {
			return nil, response.NewConflict("no project codes left for this day").Wrap(err)
		}
		return nil, err
	}

	logger.Info().Str("project", project.ProjectCode).Str("tenant", tenant).Msg("[Projects] created")
	return project, nil
}

// Get returns the project when caller may see it. Projects outside the
// caller's scope read as not found.
func (s *ProjectService) Get(ctx context.Context, id string, caller Caller) (*models.Project, error) {
	p, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !canSee(p, caller) {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

func (s *ProjectService) load(ctx context.Context, db *gorm.DB, id string) (*models.Project, error) {
	var p models.Project
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func canSee(p *models.Project, caller Caller) bool {
	if caller.IsAdmin() {
		return true
	}
	if caller.Role == models.RoleUnauthorized || caller.Role == "" {
		return false
	}
	if p.Tenant != caller.Tenant {
		return false
	}
	if !caller.SeesAllDepartments() && p.Department != caller.Department {
		return false
	}
	if caller.IsTranslator() {
		return p.TranslatorID != nil && *p.TranslatorID == caller.UID
	}
	return true
}

// StatusOptions returns the statuses caller may pick for projects of the
// tenant with slug tenant.
func (s *ProjectService) StatusOptions(ctx context.Context, caller Caller, tenant string) ([]string, error) {
	if tenant == "" {
		tenant = caller.Tenant
	}
	t, err := s.tenants.FindBySlug(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return AvailableStatuses(caller.Role, t), nil
}

// UpdateStatus changes one project's status. Moving a project back to
// Received releases its translator.
func (s *ProjectService) UpdateStatus(ctx context.Context, id, status string, caller Caller) (*models.Project, error) {
	if !models.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	var updated *models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.checkStatusChange(ctx, p, status, caller); err != nil {
			return err
		}
		if err := applyStatus(ctx, tx, []string{p.ID}, status); err != nil {
			return err
		}
		updated, err = s.load(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// BulkUpdateStatus applies status to every project in ids or to none.
func (s *ProjectService) BulkUpdateStatus(ctx context.Context, ids []string, status string, caller Caller) (*BulkStatusResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoProjectIDs
	}
	if !models.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var projects []models.Project
		if err := tx.Where("id IN ?", ids).Find(&projects).Error; err != nil {
			return err
		}
		if len(projects) != len(uniqueStrings(ids)) {
			return ErrProjectNotFound
		}
		for i := range projects {
			if err := s.checkStatusChange(ctx, &projects[i], status, caller); err != nil {
				return err
			}
		}
		return applyStatus(ctx, tx, ids, status)
	})
	if err != nil {
		return nil, err
	}

	n := len(uniqueStrings(ids))
	return &BulkStatusResult{
		Updated: n,
		Status:  status,
		Message: fmt.Sprintf("%d projects changed to %s", n, status),
	}, nil
}

func (s *ProjectService) checkStatusChange(ctx context.Context, p *models.Project, status string, caller Caller) error {
	if !canSee(p, caller) {
		return ErrProjectNotFound
	}
	if caller.IsTranslator() && (p.TranslatorID == nil || *p.TranslatorID != caller.UID) {
		return ErrNotAssigned
	}
	t, err := s.tenants.FindBySlug(ctx, p.Tenant)
	if err != nil {
		return err
	}
	for _, allowed := range AvailableStatuses(caller.Role, t) {
		if allowed == status {
			return nil
		}
	}
	return ErrStatusNotAllowed
}

func applyStatus(ctx context.Context, tx *gorm.DB, ids []string, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == models.StatusReceived {
		updates["translator_id"] = nil
	}
	return tx.WithContext(ctx).Model(&models.Project{}).Where("id IN ?", ids).Updates(updates).Error
}

// AssignTranslator sets or clears the translator of a project. Assigning
// moves a Received project to Assigned; clearing puts it back to Received.
func (s *ProjectService) AssignTranslator(ctx context.Context, id string, translatorID *string) (*models.Project, error) {
	var updated *models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if translatorID == nil || *translatorID == "" {
			updates["translator_id"] = nil
			updates["status"] = models.StatusReceived
		} else {
			var n int64
			if err := tx.Model(&models.User{}).
				Where("id = ? AND role = ?", *translatorID, models.RoleTranslator).
				Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrTranslatorNotFound
			}
			updates["translator_id"] = *translatorID
			if p.Status == models.StatusReceived {
				updates["status"] = models.StatusAssigned
			}
		}

		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return err
		}
		updated, err = s.load(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ProjectService) UpdateBilling(ctx context.Context, id string, billed float64) (*models.Project, error) {
	if billed < 0 {
		return nil, ErrNegativeValue
	}
	return s.updateColumn(ctx, id, "billed", billed)
}

// UpdateWordCount is open to admins and to the translator assigned to the
// project.
func (s *ProjectService) UpdateWordCount(ctx context.Context, id string, wordCount int, caller Caller) (*models.Project, error) {
	if wordCount < 0 {
		return nil, ErrNegativeValue
	}
	if !caller.IsAdmin() && !caller.IsTranslator() {
		return nil, ErrWordCountForbidden
	}
	p, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return s.updateColumn(ctx, p.ID, "word_count", wordCount)
}

// UpdateComments replaces the comment thread of any project caller can see.
func (s *ProjectService) UpdateComments(ctx context.Context, id, comments string, caller Caller) (*models.Project, error) {
	p, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return s.updateColumn(ctx, p.ID, "comments", comments)
}

func (s *ProjectService) updateColumn(ctx context.Context, id, column string, value interface{}) (*models.Project, error) {
	result := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrProjectNotFound
	}
	return s.load(ctx, s.db, id)
}

// Delete removes a Received project with its document records and
// decrements the project counter. Stored files are removed afterwards by
// the task queue.
func (s *ProjectService) Delete(ctx context.Context, id string, caller Caller) error {
	if !caller.IsAdmin() && caller.Role != models.RoleClient {
		return ErrDeleteForbidden
	}

	var (
		project *models.Project
		paths   []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canSee(p, caller) {
			return ErrProjectNotFound
		}
		if p.Status != models.StatusReceived {
			return ErrDeleteNotAllowed
		}
		project = p

		if err := tx.Model(&models.Document{}).Where("project_id = ?", p.ID).Pluck("path", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(p).Error; err != nil {
			return err
		}
		return s.counters.WithTx(tx).Decrement(ctx, models.CounterProjects)
	})
	if err != nil {
		return err
	}

	logger.Info().Str("project", project.ProjectCode).Int("documents", len(paths)).Msg("[Projects] deleted")
	if len(paths) > 0 && s.queue != nil {
		task := &BlobCleanupTask{ProjectID: project.ID, ProjectCode: project.ProjectCode, Paths: paths}
		if err := s.queue.Enqueue(task); err != nil {
			logger.Error().Err(err).Str("project", project.ProjectCode).Msg("[Projects] failed to enqueue blob cleanup")
		}
	}
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
