package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/config"
	"github.com/tchtranslate/portal/internal/middleware"
	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/internal/utils"
	"github.com/tchtranslate/portal/pkg/response"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	db        *gorm.DB
	auth      *services.AuthService
	users     *services.UserService
	tenants   *services.TenantService
	projects  *services.ProjectService
	queries   *services.ProjectQueryService
	functions *FunctionsHandler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })

	utils.SetJWTSecret("handler-test-secret")

	tenants := services.NewTenantService(db, nil)
	users := services.NewUserService(db, tenants)
	projects := services.NewProjectService(db, services.NewCountCodeAssigner(time.UTC), services.NewCounterService(db), tenants, nil)
	queries := services.NewProjectQueryService(
		services.NewPredicateBuilder(time.UTC),
		services.NewQueryExecutor(services.NewGormProjectStore(db)),
		users,
	)
	auth := services.NewAuthService(db, &config.JWTConfig{Secret: "handler-test-secret", ExpireHour: 1})

	return &testApp{
		db:        db,
		auth:      auth,
		users:     users,
		tenants:   tenants,
		projects:  projects,
		queries:   queries,
		functions: NewFunctionsHandler(queries, users, tenants, auth),
	}
}

// asCaller stands in for AuthRequired with fixed claims.
func asCaller(caller services.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUID, caller.UID)
		c.Set(middleware.ContextRole, caller.Role)
		c.Set(middleware.ContextTenant, caller.Tenant)
		c.Set(middleware.ContextDepartment, caller.Department)
		c.Next()
	}
}

func (a *testApp) router(caller services.Caller) *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	api.POST("/functions/verifyToken", a.functions.VerifyToken)

	protected := api.Group("", asCaller(caller))
	protected.POST("/functions/:name", a.functions.Call)

	ph := NewProjectHandler(a.projects, a.queries)
	protected.GET("/projects", ph.List)
	protected.POST("/projects", ph.Create)
	protected.DELETE("/projects/:id", ph.Delete)
	protected.PUT("/projects/:id/status", ph.UpdateStatus)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.Response
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func (a *testApp) seedProject(t *testing.T, p models.Project) models.Project {
	t.Helper()
	if p.Status == "" {
		p.Status = models.StatusReceived
	}
	if p.TimeLine.IsZero() {
		p.TimeLine = p.Created.Add(services.DefaultTimeLine)
	}
	if err := a.db.Create(&p).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p
}

var (
	adminCaller  = services.Caller{UID: "admin-1", Role: models.RoleAdmin, Tenant: "tch", Department: models.DepartmentAll}
	clientCaller = services.Caller{UID: "client-1", Role: models.RoleClient, Tenant: "acme", Department: "Legal"}
)
