package services

import (
	"context"
	"errors"
	"strings"

	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/internal/utils"
	"github.com/tchtranslate/portal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = response.NewNotFound("user not found")
	ErrEmailTaken      = response.NewConflict("email already registered")
	ErrInvalidRole     = response.NewBadRequest("role must be admin, client, translator or unauthorized")
	ErrPasswordMissing = response.NewBadRequest("password is required for new users")
	ErrTranslatorQuery = response.NewBadRequest("tenant and role are required")
	ErrUserNamesQuery  = response.NewBadRequest("users must be a non-empty list of {projectId, uid}")
	ErrRemoveSelf      = response.NewBadRequest("cannot remove your own account")
)

type UserService struct {
	db      *gorm.DB
	tenants *TenantService
}

func NewUserService(db *gorm.DB, tenants *TenantService) *UserService {
	return &UserService{db: db, tenants: tenants}
}

type UserListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Tenant   string `form:"tenant"`
	Role     string `form:"role"`
	Search   string `form:"search"`
}

type UserListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
	Items    []models.User `json:"items"`
}

// SaveUserRequest creates a user when UID is empty and updates it
// otherwise.
type SaveUserRequest struct {
	UID        string `json:"uid"`
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"max=200"`
	Password   string `json:"password" binding:"omitempty,min=6"`
	PhotoURL   string `json:"photoUrl"`
	Role       string `json:"role"`
	Tenant     string `json:"tenant"`
	Department string `json:"department"`
	IsActive   *bool  `json:"isActive"`
}

// AssignClaimsRequest replaces the scoping claims of a user.
type AssignClaimsRequest struct {
	UID        string `json:"uid" binding:"required"`
	Role       string `json:"role" binding:"required"`
	Tenant     string `json:"tenant"`
	Department string `json:"department"`
}

type TranslatorUsersRequest struct {
	Tenant     string `json:"tenant"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

type UserNameQuery struct {
	ProjectID string `json:"projectId"`
	UID       string `json:"uid"`
}

type UserNameResult struct {
	ProjectID string  `json:"projectId"`
	UID       string  `json:"uid"`
	Name      *string `json:"name"`
}

func (s *UserService) List(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if req.Tenant != "" {
		query = query.Where("tenant = ?", req.Tenant)
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("email LIKE ? OR name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var users []models.User
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.PageSize).Find(&users).Error; err != nil {
		return nil, err
	}

	return &UserListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: users}, nil
}

func (s *UserService) GetByID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Save upserts a user. Changing role, tenant or department revokes tokens
// issued before the change.
func (s *UserService) Save(ctx context.Context, req *SaveUserRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = models.RoleUnauthorized
	}
	if !models.IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if req.UID == "" {
		return s.create(ctx, req, email, role)
	}

	user, err := s.GetByID(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	if email != user.Email {
		if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{
		"email":     email,
		"name":      req.Name,
		"photo_url": req.PhotoURL,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != "" {
		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}
	if role != user.Role || req.Tenant != user.Tenant || req.Department != user.Department ||
		(req.IsActive != nil && !*req.IsActive) {
		updates["role"] = role
		updates["tenant"] = req.Tenant
		updates["department"] = req.Department
		updates["claims_version"] = gorm.Expr("claims_version + 1")
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, user.ID)
}

func (s *UserService) create(ctx context.Context, req *SaveUserRequest, email, role string) (*models.User, error) {
	if req.Password == "" {
		return nil, ErrPasswordMissing
	}
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	active := req.IsActive == nil || *req.IsActive
	user := &models.User{
		Email:         email,
		Password:      hashed,
		Name:          req.Name,
		PhotoURL:      req.PhotoURL,
		Role:          role,
		Tenant:        req.Tenant,
		Department:    req.Department,
		ClaimsVersion: 1,
		IsActive:      active,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	// Create skips a false is_active and reads back the schema default.
	if !active {
		if err := s.db.WithContext(ctx).Model(user).Update("is_active", false).Error; err != nil {
			return nil, err
		}
		user.IsActive = false
	}
	return user, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrEmailTaken
	}
	return nil
}

// Remove deletes the account; its outstanding tokens stop verifying.
func (s *UserService) Remove(ctx context.Context, uid string, caller Caller) error {
	if uid == caller.UID {
		return ErrRemoveSelf
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).Where("id = ?", uid).
			Update("claims_version", gorm.Expr("claims_version + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return tx.Where("id = ?", uid).Delete(&models.User{}).Error
	})
}

// AssignClaims sets role, tenant and department and bumps the claims
// version, so the user has to log in again to act under the new scope.
func (s *UserService) AssignClaims(ctx context.Context, req *AssignClaimsRequest) (*models.User, error) {
	if !models.IsValidRole(req.Role) {
		return nil, ErrInvalidRole
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", req.UID).Updates(map[string]interface{}{
		"role":           req.Role,
		"tenant":         req.Tenant,
		"department":     req.Department,
		"claims_version": gorm.Expr("claims_version + 1"),
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetByID(ctx, req.UID)
}

// TranslatorUsers lists the users of a tenant holding role, narrowed to a
// department unless department is empty or "all".
func (s *UserService) TranslatorUsers(ctx context.Context, req *TranslatorUsersRequest) ([]models.User, error) {
	if req.Tenant == "" || req.Role == "" {
		return nil, ErrTranslatorQuery
	}
	q := s.db.WithContext(ctx).Where("tenant = ? AND role = ?", req.Tenant, req.Role)
	if req.Department != "" && !strings.EqualFold(req.Department, models.DepartmentAll) {
		q = q.Where("department = ?", req.Department)
	}
	users := []models.User{}
	if err := q.Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// TranslatorsFor returns the translators of tenant when the tenant lets
// caller's role see them, and an empty list otherwise.
func (s *UserService) TranslatorsFor(ctx context.Context, tenant string, caller Caller) ([]TranslatorRef, error) {
	refs := []TranslatorRef{}
	if tenant == "" || s.tenants == nil {
		return refs, nil
	}
	t, err := s.tenants.FindBySlug(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if !t.ShowsTranslatorsTo(caller.Role) {
		return refs, nil
	}

	users, err := s.TranslatorUsers(ctx, &TranslatorUsersRequest{Tenant: tenant, Role: models.RoleTranslator})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		refs = append(refs, TranslatorRef{UID: u.ID, Name: u.Name})
	}
	return refs, nil
}

// UserNames resolves display names for (project, uid) pairs; unknown uids
// come back with a nil name. Non-admins only resolve themselves and the
// translators of projects they can see.
func (s *UserService) UserNames(ctx context.Context, queries []UserNameQuery, caller Caller) ([]UserNameResult, error) {
	if len(queries) == 0 {
		return nil, ErrUserNamesQuery
	}
	projectIDs := make([]string, 0, len(queries))
	for _, q := range queries {
		if q.ProjectID == "" || q.UID == "" {
			return nil, ErrUserNamesQuery
		}
		projectIDs = append(projectIDs, q.ProjectID)
	}

	allowed := func(UserNameQuery) bool { return true }
	if !caller.IsAdmin() {
		translators, err := s.visibleTranslators(ctx, projectIDs, caller)
		if err != nil {
			return nil, err
		}
		allowed = func(q UserNameQuery) bool {
			return q.UID == caller.UID || translators[q.ProjectID] == q.UID
		}
	}

	uids := make([]string, 0, len(queries))
	for _, q := range queries {
		if allowed(q) {
			uids = append(uids, q.UID)
		}
	}
	names := make(map[string]string, len(uids))
	if len(uids) > 0 {
		var users []models.User
		if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", uids).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.Name
		}
	}

	results := make([]UserNameResult, 0, len(queries))
	for _, q := range queries {
		r := UserNameResult{ProjectID: q.ProjectID, UID: q.UID}
		if name, ok := names[q.UID]; ok && name != "" && allowed(q) {
			n := name
			r.Name = &n
		}
		results = append(results, r)
	}
	return results, nil
}

// visibleTranslators maps each project caller can see to its translator.
func (s *UserService) visibleTranslators(ctx context.Context, projectIDs []string, caller Caller) (map[string]string, error) {
	var projects []models.Project
	if err := s.db.WithContext(ctx).Where("id IN ?", uniqueStrings(projectIDs)).Find(&projects).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(projects))
	for i := range projects {
		p := &projects[i]
		if p.TranslatorID != nil && canSee(p, caller) {
			out[p.ID] = *p.TranslatorID
		}
	}
	return out, nil
}
