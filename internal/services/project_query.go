package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/pkg/logger"
	"github.com/tchtranslate/portal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 500
	PageSizeAll     = "All"
)

var (
	ErrGetProjects   = response.NewServerError("error getting projects")
	ErrInvalidCursor = response.NewBadRequest("unknown cursor")
	ErrInvalidPage   = response.NewBadRequest("pagination must be a positive number or \"All\"")
)

// PageSize is either a fixed limit or "All", which fetches every match in
// one page.
type PageSize struct {
	All   bool
	Limit int
}

// ParsePageSize accepts "All" (any case), a positive integer, or "" for the
// default.
func ParsePageSize(s string) (PageSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PageSize{Limit: DefaultPageSize}, nil
	}
	if strings.EqualFold(s, PageSizeAll) {
		return PageSize{All: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return PageSize{}, ErrInvalidPage
	}
	if n > MaxPageSize {
		n = MaxPageSize
	}
	return PageSize{Limit: n}, nil
}

func (p PageSize) String() string {
	if p.All {
		return PageSizeAll
	}
	return strconv.Itoa(p.Limit)
}

// UnmarshalJSON takes either a JSON number or a string.
func (p *PageSize) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var parsed PageSize
	var err error
	switch v := raw.(type) {
	case nil:
		parsed, err = ParsePageSize("")
	case string:
		parsed, err = ParsePageSize(v)
	case float64:
		parsed, err = ParsePageSize(strconv.Itoa(int(v)))
	default:
		err = ErrInvalidPage
	}
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p PageSize) MarshalJSON() ([]byte, error) {
	if p.All {
		return json.Marshal(PageSizeAll)
	}
	return json.Marshal(p.Limit)
}

// ProjectStore is the document-store contract the executor needs: a count
// and an ordered, cursor-paged fetch over the same predicates.
type ProjectStore interface {
	CountProjects(ctx context.Context, set PredicateSet) (int64, error)
	// FindProjects returns up to limit projects ordered by created DESC,
	// id DESC, starting after the project whose id is cursor. limit <= 0
	// means no limit.
	FindProjects(ctx context.Context, set PredicateSet, limit int, cursor string) ([]models.Project, error)
}

// Page is one slice of a project listing.
type Page struct {
	Items      []models.Project `json:"projects"`
	NextCursor string           `json:"lastDoc,omitempty"`
	TotalCount int64            `json:"count"`
}

// QueryExecutor runs count-then-page over a ProjectStore. It keeps no
// state between calls.
type QueryExecutor struct {
	store ProjectStore
}

func NewQueryExecutor(store ProjectStore) *QueryExecutor {
	return &QueryExecutor{store: store}
}

// Fetch returns one page. A zero count returns an empty page without
// asking the store for rows. Store failures come back as ErrGetProjects
// and no items.
func (e *QueryExecutor) Fetch(ctx context.Context, set PredicateSet, size PageSize, cursor string) (*Page, error) {
	total, err := e.store.CountProjects(ctx, set)
	if err != nil {
		logger.Error().Err(err).Msg("[Projects] count failed")
		return nil, ErrGetProjects.Wrap(err)
	}
	if total == 0 {
		return &Page{Items: []models.Project{}, TotalCount: 0}, nil
	}

	limit := size.Limit
	if size.All {
		limit = int(total)
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	items, err := e.store.FindProjects(ctx, set, limit+1, cursor)
	if err != nil {
		var appErr *response.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		logger.Error().Err(err).Msg("[Projects] page query failed")
		return nil, ErrGetProjects.Wrap(err)
	}

	page := &Page{Items: items, TotalCount: total}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = page.Items[limit-1].ID
	}
	return page, nil
}

// GormProjectStore translates predicate sets into SQL on the projects
// table.
type GormProjectStore struct {
	db *gorm.DB
}

func NewGormProjectStore(db *gorm.DB) *GormProjectStore {
	return &GormProjectStore{db: db}
}

func (s *GormProjectStore) CountProjects(ctx context.Context, set PredicateSet) (int64, error) {
	q, err := applyPredicates(s.db.WithContext(ctx).Model(&models.Project{}), set.All())
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *GormProjectStore) FindProjects(ctx context.Context, set PredicateSet, limit int, cursor string) ([]models.Project, error) {
	db := s.db.WithContext(ctx)
	q, err := applyPredicates(db.Model(&models.Project{}), set.All())
	if err != nil {
		return nil, err
	}

	if cursor != "" {
		var last models.Project
		err := db.Select("id", "created").Where("id = ?", cursor).First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCursor
		}
		if err != nil {
			return nil, err
		}
		q = q.Where("created < ? OR (created = ? AND id < ?)", last.Created, last.Created, last.ID)
	}

	q = q.Order("created DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func applyPredicates(q *gorm.DB, preds []Predicate) (*gorm.DB, error) {
	for _, p := range preds {
		col, ok := ProjectColumn(p.Field)
		if !ok {
			return nil, fmt.Errorf("predicate on unknown field %q", p.Field)
		}
		switch p.Op {
		case OpEq:
			q = q.Where(col+" = ?", p.Value)
		case OpIn:
			q = q.Where(col+" IN ?", p.Value)
		case OpGt:
			q = q.Where(col+" > ?", p.Value)
		case OpGte:
			q = q.Where(col+" >= ?", p.Value)
		case OpLte:
			q = q.Where(col+" <= ?", p.Value)
		default:
			return nil, fmt.Errorf("unsupported operator %q", p.Op)
		}
	}
	return q, nil
}

// GetProjectsRequest is the callable getProjects payload.
type GetProjectsRequest struct {
	FilterSelection
	LastDoc    string   `json:"lastDoc"`
	NewQuery   bool     `json:"newQuery"`
	Pagination PageSize `json:"pagination"`
}

// TranslatorRef names a translator a caller may pick from.
type TranslatorRef struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

type GetProjectsResponse struct {
	Projects    []models.Project `json:"projects"`
	LastDoc     string           `json:"lastDoc,omitempty"`
	Count       int64            `json:"count"`
	Translators []TranslatorRef  `json:"translators"`
}

// ProjectQueryService answers project listings for a caller.
type ProjectQueryService struct {
	builder  *PredicateBuilder
	executor *QueryExecutor
	users    *UserService
}

func NewProjectQueryService(builder *PredicateBuilder, executor *QueryExecutor, users *UserService) *ProjectQueryService {
	return &ProjectQueryService{builder: builder, executor: executor, users: users}
}

// GetProjects builds the predicates for req, fetches one page and, when
// the caller may see them, the translators of the scoped tenant. A new
// query ignores any cursor.
func (s *ProjectQueryService) GetProjects(ctx context.Context, req *GetProjectsRequest, caller Caller) (*GetProjectsResponse, error) {
	set, err := s.builder.Build(req.FilterSelection, caller)
	if err != nil {
		return nil, err
	}

	size := req.Pagination
	if !size.All && size.Limit <= 0 {
		size.Limit = DefaultPageSize
	}
	cursor := req.LastDoc
	if req.NewQuery {
		cursor = ""
	}

	page, err := s.executor.Fetch(ctx, set, size, cursor)
	if err != nil {
		return nil, err
	}

	resp := &GetProjectsResponse{
		Projects:    page.Items,
		LastDoc:     page.NextCursor,
		Count:       page.TotalCount,
		Translators: []TranslatorRef{},
	}

	if s.users != nil && !caller.IsTranslator() {
		tenant := caller.Tenant
		if caller.IsAdmin() {
			tenant = req.Tenant
		}
		refs, err := s.users.TranslatorsFor(ctx, tenant, caller)
		if err != nil {
			logger.Warn().Err(err).Msg("[Projects] translator lookup failed")
		} else {
			resp.Translators = refs
		}
	}
	return resp, nil
}
