package services

import (
	"strings"
	"time"

	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/pkg/response"
)

// Operator is a comparison understood by every project store.
type Operator string

const (
	OpEq  Operator = "=="
	OpIn  Operator = "in"
	OpGt  Operator = ">"
	OpGte Operator = ">="
	OpLte Operator = "<="
)

// Project fields a predicate may reference.
const (
	FieldStatus        = "status"
	FieldCreated       = "created"
	FieldBilled        = "billed"
	FieldRequestNumber = "requestNumber"
	FieldTranslatorID  = "translatorId"
	FieldTenant        = "tenant"
	FieldDepartment    = "department"
)

var projectColumns = map[string]string{
	FieldStatus:        "status",
	FieldCreated:       "created",
	FieldBilled:        "billed",
	FieldRequestNumber: "request_number",
	FieldTranslatorID:  "translator_id",
	FieldTenant:        "tenant",
	FieldDepartment:    "department",
}

// ProjectColumn maps a predicate field onto its projects table column.
func ProjectColumn(field string) (string, bool) {
	col, ok := projectColumns[field]
	return col, ok
}

// Listing categories accepted in FilterSelection.StatusCategory. Any other
// value must be a status name.
const (
	CategoryAll     = "All"
	CategoryActive  = "Active"
	CategoryBilling = "Billing"
	CategoryQuoted  = "Quoted"
)

// Predicate is one backend-agnostic condition on a project field.
type Predicate struct {
	Field string      `json:"field"`
	Op    Operator    `json:"operator"`
	Value interface{} `json:"value"`
}

// PredicateSet splits who may see a project (Scope) from what the caller
// asked for (Filters). Stores AND every predicate of both lists.
type PredicateSet struct {
	Scope   []Predicate `json:"scope"`
	Filters []Predicate `json:"filters"`
}

// All returns scope followed by filters.
func (s PredicateSet) All() []Predicate {
	out := make([]Predicate, 0, len(s.Scope)+len(s.Filters))
	out = append(out, s.Scope...)
	return append(out, s.Filters...)
}

// FilterSelection is what a listing screen asks for.
type FilterSelection struct {
	StatusCategory string `json:"status"`
	Month          int    `json:"monthSelected"` // 1-12; 0 selects the whole year
	Year           int    `json:"yearSelected"`
	RequestNumber  string `json:"requestdb"`
	Tenant         string `json:"tenant"` // admin-only override
}

// Caller is the identity a request runs as, taken from verified claims.
type Caller struct {
	UID        string
	Role       string
	Tenant     string
	Department string
}

func (c Caller) IsAdmin() bool      { return c.Role == models.RoleAdmin }
func (c Caller) IsTranslator() bool { return c.Role == models.RoleTranslator }

// SeesAllDepartments reports whether department scoping is off for c.
func (c Caller) SeesAllDepartments() bool {
	return c.Department == "" || strings.EqualFold(c.Department, models.DepartmentAll)
}

var (
	ErrUnknownCategory = response.NewBadRequest("unknown status category")
	ErrInvalidMonth    = response.NewBadRequest("month must be between 1 and 12")
	ErrInvalidYear     = response.NewBadRequest("year is required and must be between 2000 and 9999")
	ErrNoRole          = response.NewForbidden("caller has no portal role")
)

// PredicateBuilder turns a filter selection into a PredicateSet. Calendar
// boundaries are computed in loc.
type PredicateBuilder struct {
	loc *time.Location
}

func NewPredicateBuilder(loc *time.Location) *PredicateBuilder {
	if loc == nil {
		loc = time.Local
	}
	return &PredicateBuilder{loc: loc}
}

// Build validates f and returns the predicates for caller. A non-empty
// request number is a separate search mode: it replaces the status and
// date filters instead of narrowing them. Scope predicates are always
// present.
func (b *PredicateBuilder) Build(f FilterSelection, caller Caller) (PredicateSet, error) {
	var set PredicateSet

	scope, err := scopePredicates(f, caller)
	if err != nil {
		return set, err
	}
	set.Scope = scope

	if rn := strings.TrimSpace(f.RequestNumber); rn != "" {
		set.Filters = []Predicate{{Field: FieldRequestNumber, Op: OpEq, Value: rn}}
		return set, nil
	}

	status, err := statusPredicate(f.StatusCategory)
	if err != nil {
		return set, err
	}
	from, to, err := b.dateRange(f.Year, f.Month)
	if err != nil {
		return set, err
	}

	set.Filters = []Predicate{
		status,
		{Field: FieldCreated, Op: OpGte, Value: from},
		{Field: FieldCreated, Op: OpLte, Value: to},
	}
	return set, nil
}

func scopePredicates(f FilterSelection, caller Caller) ([]Predicate, error) {
	if !models.IsValidRole(caller.Role) || caller.Role == models.RoleUnauthorized {
		return nil, ErrNoRole
	}

	var scope []Predicate
	if caller.IsAdmin() {
		if t := strings.TrimSpace(f.Tenant); t != "" {
			scope = append(scope, Predicate{Field: FieldTenant, Op: OpEq, Value: t})
		}
	} else {
		scope = append(scope, Predicate{Field: FieldTenant, Op: OpEq, Value: caller.Tenant})
		if !caller.SeesAllDepartments() {
			scope = append(scope, Predicate{Field: FieldDepartment, Op: OpEq, Value: caller.Department})
		}
	}

	if caller.IsTranslator() {
		scope = append(scope,
			Predicate{Field: FieldTranslatorID, Op: OpEq, Value: caller.UID},
			Predicate{Field: FieldStatus, Op: OpIn, Value: copyStrings(models.TranslatorStatuses)},
		)
	}
	return scope, nil
}

func statusPredicate(category string) (Predicate, error) {
	switch category {
	case CategoryAll:
		return Predicate{Field: FieldStatus, Op: OpIn, Value: copyStrings(models.AllStatuses)}, nil
	case CategoryActive, "":
		return Predicate{Field: FieldStatus, Op: OpIn, Value: copyStrings(models.ActiveStatuses)}, nil
	case CategoryBilling:
		return Predicate{Field: FieldStatus, Op: OpIn, Value: copyStrings(models.BillingStatuses)}, nil
	case CategoryQuoted:
		// Quoted means "has an amount", whatever the status says.
		return Predicate{Field: FieldBilled, Op: OpGt, Value: 0}, nil
	}
	if models.IsValidStatus(category) {
		return Predicate{Field: FieldStatus, Op: OpEq, Value: category}, nil
	}
	return Predicate{}, ErrUnknownCategory
}

// dateRange returns the inclusive UTC bounds of the selected month, or of
// the whole year when month is 0.
func (b *PredicateBuilder) dateRange(year, month int) (time.Time, time.Time, error) {
	if year < 2000 || year > 9999 {
		return time.Time{}, time.Time{}, ErrInvalidYear
	}
	if month < 0 || month > 12 {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}

	var start, next time.Time
	if month == 0 {
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, b.loc)
		next = start.AddDate(1, 0, 0)
	} else {
		start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, b.loc)
		next = start.AddDate(0, 1, 0)
	}
	return start.UTC(), next.Add(-time.Nanosecond).UTC(), nil
}

func copyStrings(in []string) []string {
	return append([]string(nil), in...)
}
